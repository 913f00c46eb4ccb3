package discovery

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sub-score neutral baselines. A signal that cannot be evaluated scores
// neutral rather than failing the candidate.
const (
	neutralCapabilityScore  = 0.7
	noCapabilitiesScore     = 0.3
	neutralDomainScore      = 0.7
	generalAgentDomainScore = 0.5
	unrelatedDomainScore    = 0.2
	neutralKeywordScore     = 0.7
	neutralPerformanceScore = 0.7
	defaultAvailability     = 0.5
	defaultLoad             = 0.5
)

// confidenceFloor is the fixed internal confidence threshold applied by
// TopRecommendations, independent of the caller-supplied minimum score.
const confidenceFloor = 0.4

// Performance metric defaults used when a snapshot entry omits a field.
const (
	defaultSuccessRate     = 0.7
	defaultResponseTime    = 5.0
	defaultReliability     = 0.7
	maxResponseTimeSeconds = 30.0
)

// Weights is the immutable scoring weight partition. The six weights must
// sum to 1.0 so the combined score stays in [0, 1].
type Weights struct {
	// CapabilityMatch weighs the required-capability coverage.
	CapabilityMatch float64 `json:"capability_match" yaml:"capability_match"`

	// DomainMatch weighs domain expertise alignment.
	DomainMatch float64 `json:"domain_match" yaml:"domain_match"`

	// KeywordMatch weighs keyword and description relevance.
	KeywordMatch float64 `json:"keyword_match" yaml:"keyword_match"`

	// Performance weighs the historical performance snapshot.
	Performance float64 `json:"performance" yaml:"performance"`

	// Availability weighs advertised status and last-seen recency.
	Availability float64 `json:"availability" yaml:"availability"`

	// Load weighs the inverse of current load.
	Load float64 `json:"load" yaml:"load"`
}

// DefaultWeights returns the standard weight partition.
func DefaultWeights() Weights {
	return Weights{
		CapabilityMatch: 0.35,
		DomainMatch:     0.25,
		KeywordMatch:    0.20,
		Performance:     0.10,
		Availability:    0.05,
		Load:            0.05,
	}
}

// Sum returns the total of all six weights.
func (w Weights) Sum() float64 {
	return w.CapabilityMatch + w.DomainMatch + w.KeywordMatch + w.Performance + w.Availability + w.Load
}

// Validate checks that every weight is non-negative and the partition sums
// to 1.0 within a small tolerance.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"capability_match": w.CapabilityMatch,
		"domain_match":     w.DomainMatch,
		"keyword_match":    w.KeywordMatch,
		"performance":      w.Performance,
		"availability":     w.Availability,
		"load":             w.Load,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s is negative: %f", name, v)
		}
	}
	if diff := math.Abs(w.Sum() - 1.0); diff > 1e-9 {
		return fmt.Errorf("weights sum to %f, want 1.0", w.Sum())
	}
	return nil
}

// domainClusters groups related expertise-domain labels. Two labels in the
// same synonym set score 0.8; the cluster name against one of its synonyms
// scores 0.9.
var domainClusters = map[string][]string{
	"technology": {"software", "it", "programming", "tech"},
	"finance":    {"banking", "trading", "accounting", "fintech"},
	"healthcare": {"medical", "clinical", "pharmaceutical"},
	"marketing":  {"advertising", "sales", "promotion"},
	"education":  {"learning", "training", "academic"},
}

// Ranker scores agents against a task analysis. It holds no mutable state
// beyond its configuration, so a single Ranker is safe for concurrent use.
type Ranker struct {
	weights Weights
	logger  *zap.Logger
}

// NewRanker creates a ranker with the given weight partition. A zero-value
// or invalid Weights falls back to DefaultWeights.
func NewRanker(weights Weights, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "ranker"))

	if weights == (Weights{}) {
		weights = DefaultWeights()
	} else if err := weights.Validate(); err != nil {
		logger.Warn("invalid scoring weights, using defaults", zap.Error(err))
		weights = DefaultWeights()
	}

	return &Ranker{
		weights: weights,
		logger:  logger,
	}
}

// Weights returns the ranker's weight partition.
func (r *Ranker) Weights() Weights {
	return r.weights
}

// RankAgents scores every candidate and returns the scores sorted descending.
// Ties retain the candidates' retrieval order.
func (r *Ranker) RankAgents(agents []AgentRecord, task TaskAnalysis, performance map[string]PerformanceData) []AgentScore {
	scores := make([]AgentScore, 0, len(agents))
	for _, agent := range agents {
		scores = append(scores, r.ScoreAgent(agent, task, performance))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	return scores
}

// ScoreAgent computes the weighted score, confidence, match reasons, and
// sub-score metadata for a single candidate. It is a pure function of its
// inputs plus the caller-supplied performance snapshot.
func (r *Ranker) ScoreAgent(agent AgentRecord, task TaskAnalysis, performance map[string]PerformanceData) AgentScore {
	var reasons []string

	capabilityScore, capReason := r.scoreCapabilities(agent, task)
	if capReason != "" {
		reasons = append(reasons, capReason)
	}

	domainScore, domainReason := r.scoreDomain(agent, task)
	if domainReason != "" {
		reasons = append(reasons, domainReason)
	}

	keywordScore, keywordReason := r.scoreKeywords(agent, task)
	if keywordReason != "" {
		reasons = append(reasons, keywordReason)
	}

	performanceScore := r.scorePerformance(agent.AgentID, performance)
	availabilityScore := r.scoreAvailability(agent)
	loadScore := r.scoreLoad(agent)

	total := capabilityScore*r.weights.CapabilityMatch +
		domainScore*r.weights.DomainMatch +
		keywordScore*r.weights.KeywordMatch +
		performanceScore*r.weights.Performance +
		availabilityScore*r.weights.Availability +
		loadScore*r.weights.Load

	return AgentScore{
		AgentID:      agent.AgentID,
		Score:        total,
		Confidence:   r.scoreConfidence(agent, task),
		MatchReasons: reasons,
		Metadata: map[string]float64{
			"capability_score":   capabilityScore,
			"domain_score":       domainScore,
			"keyword_score":      keywordScore,
			"performance_score":  performanceScore,
			"availability_score": availabilityScore,
			"load_score":         loadScore,
		},
	}
}

// TopRecommendations keeps scores meeting both the caller-supplied minimum
// score and the fixed confidence floor, then truncates to limit. The input
// must already be sorted descending.
func (r *Ranker) TopRecommendations(scores []AgentScore, limit int, minScore float64) []AgentScore {
	if limit <= 0 {
		limit = DefaultLimit
	}

	filtered := make([]AgentScore, 0, len(scores))
	for _, s := range scores {
		if s.Score >= minScore && s.Confidence >= confidenceFloor {
			filtered = append(filtered, s)
		}
	}

	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered
}

// scoreCapabilities scores required-capability coverage. Full coverage earns
// a bonus of 0.05 per extra declared capability, capped at 0.2.
func (r *Ranker) scoreCapabilities(agent AgentRecord, task TaskAnalysis) (float64, string) {
	required := stringSet(task.RequiredCapabilities)
	if len(required) == 0 {
		return neutralCapabilityScore, ""
	}

	declared := stringSet(agent.Capabilities)
	if len(declared) == 0 {
		return noCapabilitiesScore, ""
	}

	matched := make([]string, 0, len(required))
	for name := range required {
		if _, ok := declared[name]; ok {
			matched = append(matched, name)
		}
	}

	ratio := float64(len(matched)) / float64(len(required))

	var reason string
	if len(matched) > 0 {
		sort.Strings(matched)
		reason = "Matching capabilities: " + strings.Join(matched, ", ")
	}

	if len(matched) == len(required) {
		extra := len(declared) - len(required)
		ratio += math.Min(0.2, float64(extra)*0.05)
	}

	return math.Min(1.0, ratio), reason
}

// scoreDomain scores domain alignment using exact matching and the fixed
// cluster table.
func (r *Ranker) scoreDomain(agent AgentRecord, task TaskAnalysis) (float64, string) {
	agentDomain := strings.ToLower(agent.Domain)
	taskDomain := strings.ToLower(task.Domain)

	if taskDomain == "general" {
		return neutralDomainScore, ""
	}
	if agentDomain == "" || agentDomain == "general" {
		return generalAgentDomainScore, ""
	}
	if agentDomain == taskDomain {
		return 1.0, "Domain expertise: " + taskDomain
	}

	similarity := domainSimilarity(agentDomain, taskDomain)
	if similarity > 0.5 {
		return similarity, "Related domain: " + agentDomain
	}
	return similarity, ""
}

// scoreKeywords scores the overlap between task keywords and the agent's
// keyword set plus description text.
func (r *Ranker) scoreKeywords(agent AgentRecord, task TaskAnalysis) (float64, string) {
	taskKeywords := lowerSet(task.Keywords)
	if len(taskKeywords) == 0 {
		return neutralKeywordScore, ""
	}

	agentKeywords := lowerSet(agent.Keywords)
	description := strings.ToLower(agent.Description)

	matched := make(map[string]struct{}, len(taskKeywords))
	for kw := range taskKeywords {
		if _, ok := agentKeywords[kw]; ok {
			matched[kw] = struct{}{}
			continue
		}
		if description != "" && strings.Contains(description, kw) {
			matched[kw] = struct{}{}
		}
	}

	var reason string
	if len(matched) > 0 {
		list := make([]string, 0, len(matched))
		for kw := range matched {
			list = append(list, kw)
		}
		sort.Strings(list)
		reason = "Keyword matches: " + strings.Join(list, ", ")
	}

	ratio := float64(len(matched)) / float64(len(taskKeywords))
	return math.Min(1.0, ratio), reason
}

// scorePerformance combines success rate, response time, and reliability
// from the caller-owned snapshot. Agents without an entry score neutral.
func (r *Ranker) scorePerformance(agentID string, performance map[string]PerformanceData) float64 {
	if len(performance) == 0 {
		return neutralPerformanceScore
	}
	perf, ok := performance[agentID]
	if !ok {
		return neutralPerformanceScore
	}

	successRate := defaultSuccessRate
	if perf.SuccessRate != nil {
		successRate = *perf.SuccessRate
	}
	responseTime := defaultResponseTime
	if perf.AvgResponseTime != nil {
		responseTime = *perf.AvgResponseTime
	}
	reliability := defaultReliability
	if perf.Reliability != nil {
		reliability = *perf.Reliability
	}

	// Response times at or beyond 30s floor to zero.
	timeScore := math.Max(0.0, 1.0-responseTime/maxResponseTimeSeconds)

	score := successRate*0.5 + timeScore*0.3 + reliability*0.2
	return clamp01(score)
}

// scoreAvailability maps advertised status to a fixed score, falling back to
// last-seen recency when the status is absent or unrecognized.
func (r *Ranker) scoreAvailability(agent AgentRecord) float64 {
	switch AgentStatus(strings.ToLower(string(agent.Status))) {
	case AgentStatusOffline:
		return 0.0
	case AgentStatusBusy:
		return 0.3
	case AgentStatusAvailable, AgentStatusOnline:
		return 1.0
	}

	if agent.LastSeen != nil && !agent.LastSeen.IsZero() {
		switch elapsed := time.Since(agent.LastSeen.Time); {
		case elapsed < 5*time.Minute:
			return 1.0
		case elapsed < time.Hour:
			return 0.8
		case elapsed < 24*time.Hour:
			return 0.5
		default:
			return 0.2
		}
	}

	return defaultAvailability
}

// scoreLoad scores the inverse of the agent's current load.
func (r *Ranker) scoreLoad(agent AgentRecord) float64 {
	load := defaultLoad
	if agent.CurrentLoad != nil {
		load = *agent.CurrentLoad
	}
	return clamp01(1.0 - load)
}

// scoreConfidence estimates scoring confidence from metadata completeness,
// capped by the task analysis confidence.
func (r *Ranker) scoreConfidence(agent AgentRecord, task TaskAnalysis) float64 {
	confidence := 0.5
	if len(agent.Capabilities) > 0 {
		confidence += 0.2
	}
	if agent.Description != "" {
		confidence += 0.1
	}
	if agent.Domain != "" {
		confidence += 0.1
	}
	if agent.LastSeen != nil {
		confidence += 0.05
	}
	if agent.Status != "" {
		confidence += 0.05
	}

	confidence *= task.Confidence
	return clamp01(confidence)
}

// domainSimilarity consults the cluster table: both labels synonyms of one
// cluster scores 0.8, cluster name against its own synonym scores 0.9, and
// anything else scores the unrelated-domain floor.
func domainSimilarity(domain1, domain2 string) float64 {
	for name, related := range domainClusters {
		in1, in2 := containsString(related, domain1), containsString(related, domain2)
		if in1 && in2 {
			return 0.8
		}
		if (domain1 == name && in2) || (domain2 == name && in1) {
			return 0.9
		}
	}
	return unrelatedDomainScore
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// stringSet builds a set preserving the values' original case.
func stringSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

// lowerSet builds a lowercased set.
func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
