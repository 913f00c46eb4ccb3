package registry

import (
	"github.com/BaSui01/agentscout/discovery"
)

// RegisterRequest is the payload for registering an agent.
type RegisterRequest struct {
	// AgentID is the unique identity to register. Required.
	AgentID string `json:"agent_id"`

	// AgentURL is the agent's primary endpoint. Required.
	AgentURL string `json:"agent_url"`

	// APIURL is the agent's API endpoint, when distinct from AgentURL.
	APIURL string `json:"api_url,omitempty"`

	// AgentFactsURL points at the agent's published facts document.
	AgentFactsURL string `json:"agent_facts_url,omitempty"`
}

// StatusUpdate is the payload for a status heartbeat.
type StatusUpdate struct {
	// AgentID is the agent being updated.
	AgentID string `json:"agent_id"`

	// Status is the new advertised status.
	Status discovery.AgentStatus `json:"status"`

	// LastSeen is stamped by the client at send time.
	LastSeen *discovery.Timestamp `json:"last_seen"`
}

// Stats summarizes the registry's own view of its contents.
type Stats struct {
	// TotalAgents is the number of registered agents.
	TotalAgents int `json:"total_agents"`

	// ActiveAgents is the number of agents the registry considers live.
	ActiveAgents int `json:"active_agents"`

	// Version is the registry server version, when reported.
	Version string `json:"version,omitempty"`

	// UptimeSeconds is the registry server uptime, when reported.
	UptimeSeconds float64 `json:"uptime_seconds,omitempty"`
}

// agentListEnvelope is the alternative wire shape some registry deployments
// use for listing responses.
type agentListEnvelope struct {
	Agents []discovery.AgentRecord `json:"agents"`
}
