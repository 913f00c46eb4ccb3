package registry

import "errors"

// Registry client errors.
var (
	// ErrRegistryUnavailable indicates the registry could not be reached or
	// answered with an unexpected status.
	ErrRegistryUnavailable = errors.New("registry: unavailable")
	// ErrAgentNotFound indicates the requested agent is not registered.
	ErrAgentNotFound = errors.New("registry: agent not found")
	// ErrInvalidResponse indicates the registry answered with a body the
	// client could not decode.
	ErrInvalidResponse = errors.New("registry: invalid response")
	// ErrInvalidRequest indicates a request was rejected before being sent.
	ErrInvalidRequest = errors.New("registry: invalid request")
)
