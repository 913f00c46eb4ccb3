// Package registry provides an HTTP client for the agent index registry.
//
// Client implements discovery.Registry, so it plugs straight into the
// discovery engine, and additionally exposes the registry's management
// surface (register, status updates, unregister, health, stats).
//
// # Basic Usage
//
//	client := registry.NewClient(registry.DefaultClientConfig("https://registry.example.com"), logger)
//
//	agents, err := client.ListAgents(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	matches, err := client.SearchAgents(ctx, discovery.SearchQuery{
//	    Query:        "invoice processing",
//	    Capabilities: []string{"data_extraction"},
//	})
//
// # Degraded Search
//
// When the registry's /search endpoint is missing or unhealthy, SearchAgents
// falls back to fetching the full listing and filtering it client-side with
// the same query semantics (substring over agent id and description, any
// capability overlap, any tag overlap).
//
// # Transport Behavior
//
// Every call is gated by a shared rate limiter, carries an X-Request-ID
// (taken from the context when the discovery engine stamped one, freshly
// generated otherwise), and retries transport errors and 5xx responses with
// a fixed delay, honoring context cancellation between attempts. Lookup
// translates 404 into ErrAgentNotFound so callers can branch on it with
// errors.Is.
package registry
