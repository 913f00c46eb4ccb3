// Package discovery provides task-to-agent matching, scoring, and ranked
// recommendations over a directory of agent records.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"time"
)

// AgentStatus represents the advertised status of an agent.
type AgentStatus string

const (
	// AgentStatusOnline indicates the agent is online and accepting tasks.
	AgentStatusOnline AgentStatus = "online"
	// AgentStatusAvailable indicates the agent is idle and accepting tasks.
	AgentStatusAvailable AgentStatus = "available"
	// AgentStatusBusy indicates the agent is processing tasks at capacity.
	AgentStatusBusy AgentStatus = "busy"
	// AgentStatusOffline indicates the agent is not reachable.
	AgentStatusOffline AgentStatus = "offline"
	// AgentStatusUnknown indicates the agent status was not reported.
	AgentStatusUnknown AgentStatus = "unknown"
)

// Complexity represents the estimated complexity of a task.
type Complexity string

const (
	// ComplexitySimple indicates a single-step task.
	ComplexitySimple Complexity = "simple"
	// ComplexityModerate indicates a multi-step task for a single agent.
	ComplexityModerate Complexity = "moderate"
	// ComplexityComplex indicates a task likely requiring multiple agents.
	ComplexityComplex Complexity = "complex"
)

// Timestamp wraps time.Time with a forgiving JSON decoder. Registry entries
// carry last-seen values in several formats (RFC 3339, naive ISO 8601, unix
// seconds); an unparseable value decodes to the zero Timestamp instead of
// failing the whole record.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		sec, frac := int64(n), n-float64(int64(n))
		t.Time = time.Unix(sec, int64(frac*float64(time.Second))).UTC()
		return nil
	}
	s = strings.Trim(s, `"`)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	// Malformed timestamps degrade to the zero value; availability scoring
	// then falls back to its default.
	t.Time = time.Time{}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// AgentRecord is the normalized view of one directory entry. Records are
// externally supplied and read-only to this package.
type AgentRecord struct {
	// AgentID is the unique identity of the agent.
	AgentID string `json:"agent_id"`

	// AgentURL is the agent's primary endpoint.
	AgentURL string `json:"agent_url,omitempty"`

	// APIURL is the agent's API endpoint, when distinct from AgentURL.
	APIURL string `json:"api_url,omitempty"`

	// Capabilities is the set of capability tags the agent declares.
	Capabilities []string `json:"capabilities,omitempty"`

	// Domain is the lowercase-normalized expertise area. May be empty or
	// "general".
	Domain string `json:"domain,omitempty"`

	// Keywords is the set of descriptive keywords the agent declares.
	Keywords []string `json:"keywords,omitempty"`

	// Tags is the set of registry-level tags.
	Tags []string `json:"tags,omitempty"`

	// Description is free text describing the agent.
	Description string `json:"description,omitempty"`

	// Status is the advertised agent status. Empty means not reported.
	Status AgentStatus `json:"status,omitempty"`

	// LastSeen is the last heartbeat observed by the registry. Nil means
	// never reported; a non-nil zero value means the reported timestamp was
	// malformed.
	LastSeen *Timestamp `json:"last_seen,omitempty"`

	// CurrentLoad is the agent's load in [0, 1]. Nil means not reported and
	// is scored as 0.5.
	CurrentLoad *float64 `json:"current_load,omitempty"`
}

// Fingerprint returns a canonical identity key for cross-query deduplication:
// the agent id plus a content hash over normalized fields. Two records with
// the same id but differing metadata produce different fingerprints and are
// treated as distinct candidates.
func (a AgentRecord) Fingerprint() string {
	h := fnv.New64a()
	write := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(p))
			h.Write([]byte{0})
		}
	}
	// Sets are length-prefixed so an element cannot shift between adjacent
	// fields and collide.
	writeSet := func(values []string) {
		set := normalizeSet(values)
		write(strconv.Itoa(len(set)))
		write(set...)
	}
	write(a.AgentURL, a.APIURL, strings.ToLower(a.Domain), a.Description, string(a.Status))
	writeSet(a.Capabilities)
	writeSet(a.Keywords)
	writeSet(a.Tags)
	if a.LastSeen != nil && !a.LastSeen.IsZero() {
		write(strconv.FormatInt(a.LastSeen.UnixNano(), 10))
	}
	if a.CurrentLoad != nil {
		write(strconv.FormatFloat(*a.CurrentLoad, 'f', -1, 64))
	}
	return fmt.Sprintf("%s@%016x", a.AgentID, h.Sum64())
}

// normalizeSet lowercases, dedupes, and sorts a string set for hashing.
func normalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// TaskAnalysis is the structured interpretation of a natural-language task.
// It is consumed, never produced, by this package.
type TaskAnalysis struct {
	// TaskType classifies the task (for example "data_analysis" or
	// "automation").
	TaskType string `json:"task_type"`

	// Domain is the inferred expertise area, or "general".
	Domain string `json:"domain"`

	// Complexity is the estimated task complexity.
	Complexity Complexity `json:"complexity"`

	// RequiredCapabilities is the set of capabilities the task needs.
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`

	// Keywords is relevance-ordered: the first entries are the most salient.
	Keywords []string `json:"keywords,omitempty"`

	// Confidence reflects parse certainty in [0, 1]. It caps every agent's
	// reported confidence.
	Confidence float64 `json:"confidence"`
}

// AgentScore is the scoring outcome for a single candidate.
type AgentScore struct {
	// AgentID identifies the scored agent.
	AgentID string `json:"agent_id"`

	// Score is the weighted sum of the six sub-scores. Each sub-score is
	// clipped to [0, 1] before weighting, so the total is bounded by the sum
	// of the weights.
	Score float64 `json:"score"`

	// Confidence estimates how trustworthy the score is, in [0, 1].
	Confidence float64 `json:"confidence"`

	// MatchReasons lists human-readable justifications appended during
	// scoring, in sub-score order.
	MatchReasons []string `json:"match_reasons,omitempty"`

	// Metadata maps each sub-score name to its raw value for auditing.
	Metadata map[string]float64 `json:"metadata,omitempty"`
}

// DiscoveryResult is the immutable outcome of one discovery call.
type DiscoveryResult struct {
	// DiscoveryID correlates logs, traces, and results for one call.
	DiscoveryID string `json:"discovery_id"`

	// TaskAnalysis is the parsed task the result was computed for.
	TaskAnalysis TaskAnalysis `json:"task_analysis"`

	// RecommendedAgents is ordered descending by score.
	RecommendedAgents []AgentScore `json:"recommended_agents"`

	// TotalAgentsEvaluated counts candidates before threshold filtering.
	TotalAgentsEvaluated int `json:"total_agents_evaluated"`

	// SearchTimeSeconds is the wall-clock duration of the call.
	SearchTimeSeconds float64 `json:"search_time_seconds"`

	// Suggestions holds actionable hints derived from the result shape.
	Suggestions []string `json:"suggestions,omitempty"`
}

// PerformanceData is one agent's entry in the caller-owned performance
// snapshot. Nil fields fall back to neutral defaults at scoring time
// (success rate 0.7, response time 5s, reliability 0.7).
type PerformanceData struct {
	// SuccessRate is the fraction of successful executions in [0, 1].
	SuccessRate *float64 `json:"success_rate,omitempty"`

	// AvgResponseTime is the mean response time in seconds.
	AvgResponseTime *float64 `json:"avg_response_time,omitempty"`

	// Reliability is a long-horizon dependability estimate in [0, 1].
	Reliability *float64 `json:"reliability,omitempty"`
}

// SearchQuery describes one registry search.
type SearchQuery struct {
	// Query is a free-text search over agent ids and descriptions.
	Query string `json:"query,omitempty"`

	// Capabilities restricts results to agents declaring any of these.
	Capabilities []string `json:"capabilities,omitempty"`

	// Tags restricts results to agents carrying any of these tags.
	Tags []string `json:"tags,omitempty"`
}

// Filters narrows the candidate set after retrieval.
type Filters struct {
	// Status keeps only agents whose advertised status matches exactly.
	Status AgentStatus `json:"status,omitempty"`

	// Domain keeps only agents whose domain matches case-insensitively.
	Domain string `json:"domain,omitempty"`

	// ExcludeAgents drops agents by id.
	ExcludeAgents []string `json:"exclude_agents,omitempty"`

	// MinScore is accepted for caller convenience but is a documented no-op
	// at retrieval time: scoring has not happened yet, so the threshold is
	// applied later by TopRecommendations instead.
	MinScore float64 `json:"min_score,omitempty"`
}

// Registry is the directory lookup contract the engine consumes. All methods
// are best-effort from the engine's point of view: failures are logged and
// degrade to empty candidate sets, never aborting a discovery call.
type Registry interface {
	// SearchAgents returns agents matching the query.
	SearchAgents(ctx context.Context, query SearchQuery) ([]AgentRecord, error)

	// ListAgents returns the full directory listing.
	ListAgents(ctx context.Context) ([]AgentRecord, error)

	// GetAgentMetadata returns one agent's record, or nil when absent.
	GetAgentMetadata(ctx context.Context, agentID string) (*AgentRecord, error)
}

// TaskAnalyzer converts a natural-language task description into a
// TaskAnalysis. The engine treats it as opaque.
type TaskAnalyzer interface {
	// AnalyzeTask parses the description.
	AnalyzeTask(ctx context.Context, description string) (TaskAnalysis, error)
}

// PerformanceProvider supplies the caller-owned performance snapshot read
// during scoring. Implementations must be safe for concurrent readers.
type PerformanceProvider interface {
	// Snapshot returns performance data for the given agent ids. Missing
	// agents are simply absent from the map.
	Snapshot(ctx context.Context, agentIDs []string) map[string]PerformanceData
}

// PerformanceRecorder is implemented by providers that accept out-of-band
// performance updates.
type PerformanceRecorder interface {
	// Update stores performance data for one agent. Nil fields leave the
	// provider's existing values untouched.
	Update(agentID string, data PerformanceData)
}
