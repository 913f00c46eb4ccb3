package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/agentscout/internal/ctxkeys"
	"github.com/BaSui01/agentscout/internal/metrics"
)

const instrumentationName = "github.com/BaSui01/agentscout/discovery"

// Discovery call defaults.
const (
	// DefaultLimit is the default maximum number of recommendations.
	DefaultLimit = 5
	// DefaultMinScore is the default minimum score for recommendations.
	DefaultMinScore = 0.3
	// DefaultSimilarLimit is the default limit for GetSimilarAgents.
	DefaultSimilarLimit = 3
)

// EngineConfig holds configuration for the discovery engine.
type EngineConfig struct {
	// Weights is the scoring weight partition. Zero value means
	// DefaultWeights.
	Weights Weights `json:"weights" yaml:"weights"`

	// DefaultLimit is the recommendation limit when a call does not set one.
	DefaultLimit int `json:"default_limit" yaml:"default_limit"`

	// DefaultMinScore is the score threshold when a call does not set one.
	DefaultMinScore float64 `json:"default_min_score" yaml:"default_min_score"`
}

// DefaultEngineConfig returns an EngineConfig with standard defaults.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Weights:         DefaultWeights(),
		DefaultLimit:    DefaultLimit,
		DefaultMinScore: DefaultMinScore,
	}
}

// Engine coordinates task analysis, candidate retrieval, scoring, and
// recommendation assembly. Discovery calls are independent; the engine holds
// no mutable cross-call state beyond the externally-owned performance
// provider, so a single Engine is safe for concurrent use.
type Engine struct {
	registry    Registry
	analyzer    TaskAnalyzer
	ranker      *Ranker
	performance PerformanceProvider

	collector *metrics.Collector
	tracer    trace.Tracer
	config    *EngineConfig
	logger    *zap.Logger
}

// NewEngine creates a discovery engine. The registry and analyzer are the
// engine's collaborators: a nil registry degrades every retrieval to an
// empty candidate set, and a nil analyzer yields a neutral task analysis.
func NewEngine(registry Registry, analyzer TaskAnalyzer, config *EngineConfig, logger *zap.Logger) *Engine {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = DefaultLimit
	}
	if config.DefaultMinScore <= 0 {
		config.DefaultMinScore = DefaultMinScore
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		registry: registry,
		analyzer: analyzer,
		ranker:   NewRanker(config.Weights, logger),
		tracer:   otel.Tracer(instrumentationName),
		config:   config,
		logger:   logger.With(zap.String("component", "discovery_engine")),
	}
}

// SetPerformanceProvider wires the caller-owned performance snapshot source.
func (e *Engine) SetPerformanceProvider(provider PerformanceProvider) {
	e.performance = provider
}

// SetCollector wires the metrics collector.
func (e *Engine) SetCollector(collector *metrics.Collector) {
	e.collector = collector
}

// Ranker returns the engine's ranker.
func (e *Engine) Ranker() *Ranker {
	return e.ranker
}

// discoverOptions carries per-call settings for DiscoverAgents.
type discoverOptions struct {
	limit    int
	minScore float64
	filters  *Filters
}

// DiscoverOption customizes a single discovery call.
type DiscoverOption func(*discoverOptions)

// WithLimit sets the maximum number of recommendations for one call.
func WithLimit(limit int) DiscoverOption {
	return func(o *discoverOptions) {
		if limit > 0 {
			o.limit = limit
		}
	}
}

// WithMinScore sets the minimum recommendation score for one call.
func WithMinScore(minScore float64) DiscoverOption {
	return func(o *discoverOptions) {
		o.minScore = minScore
	}
}

// WithFilters narrows the candidate set before scoring.
func WithFilters(filters Filters) DiscoverOption {
	return func(o *discoverOptions) {
		o.filters = &filters
	}
}

// DiscoverAgents analyzes the task description, gathers and scores
// candidates, and returns ranked recommendations with suggestions. Registry
// and analyzer failures degrade rather than abort; the returned error is
// non-nil only when the context is cancelled during retrieval.
func (e *Engine) DiscoverAgents(ctx context.Context, taskDescription string, opts ...DiscoverOption) (*DiscoveryResult, error) {
	options := discoverOptions{
		limit:    e.config.DefaultLimit,
		minScore: e.config.DefaultMinScore,
	}
	for _, opt := range opts {
		opt(&options)
	}

	discoveryID := uuid.NewString()
	ctx = ctxkeys.WithRequestID(ctx, discoveryID)

	ctx, span := e.tracer.Start(ctx, "discovery.discover_agents",
		trace.WithAttributes(
			attribute.String("discovery.id", discoveryID),
			attribute.Int("discovery.limit", options.limit),
			attribute.Float64("discovery.min_score", options.minScore),
		))
	defer span.End()

	start := time.Now()

	analysis := e.analyzeTask(ctx, taskDescription)
	candidates := e.gatherCandidates(ctx, analysis, options.filters)

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		if e.collector != nil {
			e.collector.RecordDiscovery("cancelled", time.Since(start), len(candidates), 0)
		}
		return nil, fmt.Errorf("discovery cancelled: %w", err)
	}

	snapshot := e.performanceSnapshot(ctx, candidates)
	scores := e.ranker.RankAgents(candidates, analysis, snapshot)
	recommendations := e.ranker.TopRecommendations(scores, options.limit, options.minScore)
	suggestions := buildSuggestions(analysis, recommendations)

	elapsed := time.Since(start)

	result := &DiscoveryResult{
		DiscoveryID:          discoveryID,
		TaskAnalysis:         analysis,
		RecommendedAgents:    recommendations,
		TotalAgentsEvaluated: len(candidates),
		SearchTimeSeconds:    elapsed.Seconds(),
		Suggestions:          suggestions,
	}

	span.SetAttributes(
		attribute.String("discovery.task_type", analysis.TaskType),
		attribute.String("discovery.domain", analysis.Domain),
		attribute.Int("discovery.candidates", len(candidates)),
		attribute.Int("discovery.recommended", len(recommendations)),
	)
	if e.collector != nil {
		e.collector.RecordDiscovery("completed", elapsed, len(candidates), len(recommendations))
	}

	e.logger.Info("discovery completed",
		zap.String("discovery_id", discoveryID),
		zap.String("task_type", analysis.TaskType),
		zap.String("domain", analysis.Domain),
		zap.Int("candidates", len(candidates)),
		zap.Int("recommended", len(recommendations)),
		zap.Duration("elapsed", elapsed),
	)

	return result, nil
}

// GetSimilarAgents finds agents similar to the given agent by building a
// synthetic task from the target's own domain and capabilities and running a
// normal discovery. The target itself is excluded from the results. An
// unknown agent yields an empty result, not an error.
func (e *Engine) GetSimilarAgents(ctx context.Context, agentID string, limit int) ([]AgentScore, error) {
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}

	target := e.lookupAgent(ctx, agentID)
	if target == nil {
		return []AgentScore{}, nil
	}

	domain := target.Domain
	if domain == "" {
		domain = "general"
	}
	description := fmt.Sprintf("Task requiring %s domain expertise", domain)
	if len(target.Capabilities) > 0 {
		description += " with capabilities: " + strings.Join(target.Capabilities, ", ")
	}

	// One extra slot so dropping the target cannot shorten the result.
	result, err := e.DiscoverAgents(ctx, description, WithLimit(limit+1))
	if err != nil {
		return nil, err
	}

	similar := make([]AgentScore, 0, limit)
	for _, score := range result.RecommendedAgents {
		if score.AgentID == agentID {
			continue
		}
		similar = append(similar, score)
	}
	if len(similar) > limit {
		similar = similar[:limit]
	}
	return similar, nil
}

// SearchByCapabilities returns agents declaring any of the capabilities.
func (e *Engine) SearchByCapabilities(ctx context.Context, capabilities []string) ([]AgentRecord, error) {
	if e.registry == nil {
		return nil, fmt.Errorf("no registry configured")
	}
	return e.registry.SearchAgents(ctx, SearchQuery{Capabilities: capabilities})
}

// SearchByDomain returns agents matching the domain as a text query.
func (e *Engine) SearchByDomain(ctx context.Context, domain string) ([]AgentRecord, error) {
	if e.registry == nil {
		return nil, fmt.Errorf("no registry configured")
	}
	return e.registry.SearchAgents(ctx, SearchQuery{Query: domain})
}

// AgentDetails returns one agent's record, or nil when the registry does not
// know the agent.
func (e *Engine) AgentDetails(ctx context.Context, agentID string) (*AgentRecord, error) {
	if e.registry == nil {
		return nil, fmt.Errorf("no registry configured")
	}
	return e.registry.GetAgentMetadata(ctx, agentID)
}

// UpdatePerformance forwards an out-of-band performance update to the
// provider. Providers that do not accept updates ignore the call.
func (e *Engine) UpdatePerformance(agentID string, data PerformanceData) {
	recorder, ok := e.performance.(PerformanceRecorder)
	if !ok {
		e.logger.Debug("performance provider does not accept updates",
			zap.String("agent_id", agentID))
		return
	}
	recorder.Update(agentID, data)
}

// analyzeTask runs the task analyzer, degrading to a neutral analysis when
// the analyzer is missing or fails.
func (e *Engine) analyzeTask(ctx context.Context, description string) TaskAnalysis {
	if e.analyzer == nil {
		return neutralAnalysis()
	}
	analysis, err := e.analyzer.AnalyzeTask(ctx, description)
	if err != nil {
		e.logger.Warn("task analysis failed, using neutral analysis", zap.Error(err))
		return neutralAnalysis()
	}
	return analysis
}

// neutralAnalysis is the degraded analysis used when no analyzer output is
// available. Its 0.5 confidence conservatively caps agent confidences.
func neutralAnalysis() TaskAnalysis {
	return TaskAnalysis{
		TaskType:   "general",
		Domain:     "general",
		Complexity: ComplexityModerate,
		Confidence: 0.5,
	}
}

// gatherCandidates issues up to three registry queries, unions the results
// with fingerprint deduplication, applies the caller filters, and falls back
// to the full listing when nothing survives.
func (e *Engine) gatherCandidates(ctx context.Context, task TaskAnalysis, filters *Filters) []AgentRecord {
	seen := make(map[string]struct{})
	var union []AgentRecord
	merge := func(records []AgentRecord) {
		for _, record := range records {
			fingerprint := record.Fingerprint()
			if _, ok := seen[fingerprint]; ok {
				continue
			}
			seen[fingerprint] = struct{}{}
			union = append(union, record)
		}
	}

	if len(task.RequiredCapabilities) > 0 {
		merge(e.searchRegistry(ctx, "capabilities", SearchQuery{Capabilities: task.RequiredCapabilities}))
	}

	if domain := strings.ToLower(task.Domain); domain != "" && domain != "general" {
		merge(e.searchRegistry(ctx, "domain", SearchQuery{Query: task.Domain}))
	}

	if len(task.Keywords) > 0 {
		keywords := task.Keywords
		if len(keywords) > 3 {
			keywords = keywords[:3]
		}
		merge(e.searchRegistry(ctx, "keywords", SearchQuery{Query: strings.Join(keywords, " ")}))
	}

	candidates := e.applyFilters(union, filters)

	// The fallback is the raw listing; caller filters are deliberately not
	// re-applied to it.
	if len(candidates) == 0 {
		candidates = e.listRegistry(ctx)
	}

	return candidates
}

// applyFilters narrows the candidate union by status, excluded ids, and
// domain. The MinScore key is accepted but not applied here; scoring has not
// happened yet, so the threshold runs in TopRecommendations instead.
func (e *Engine) applyFilters(agents []AgentRecord, filters *Filters) []AgentRecord {
	if filters == nil {
		return agents
	}

	if filters.MinScore > 0 {
		e.logger.Debug("min_score filter is not applied at retrieval",
			zap.Float64("min_score", filters.MinScore))
	}

	exclude := stringSet(filters.ExcludeAgents)
	filtered := make([]AgentRecord, 0, len(agents))
	for _, agent := range agents {
		if filters.Status != "" && agent.Status != filters.Status {
			continue
		}
		if _, ok := exclude[agent.AgentID]; ok {
			continue
		}
		if filters.Domain != "" && !strings.EqualFold(agent.Domain, filters.Domain) {
			continue
		}
		filtered = append(filtered, agent)
	}
	return filtered
}

// searchRegistry runs one registry search, degrading failures to an empty
// result for that query.
func (e *Engine) searchRegistry(ctx context.Context, kind string, query SearchQuery) []AgentRecord {
	if e.registry == nil {
		return nil
	}
	records, err := e.registry.SearchAgents(ctx, query)
	if err != nil {
		e.logger.Warn("registry search failed",
			zap.String("query", kind),
			zap.Error(err))
		return nil
	}
	e.logger.Debug("registry search completed",
		zap.String("query", kind),
		zap.Int("agents", len(records)))
	return records
}

// listRegistry returns the full listing, degrading failures to empty.
func (e *Engine) listRegistry(ctx context.Context) []AgentRecord {
	if e.registry == nil {
		return nil
	}
	records, err := e.registry.ListAgents(ctx)
	if err != nil {
		e.logger.Warn("registry listing failed", zap.Error(err))
		return nil
	}
	return records
}

// lookupAgent fetches one agent's record, degrading failures to nil.
func (e *Engine) lookupAgent(ctx context.Context, agentID string) *AgentRecord {
	if e.registry == nil {
		return nil
	}
	record, err := e.registry.GetAgentMetadata(ctx, agentID)
	if err != nil {
		e.logger.Warn("agent lookup failed",
			zap.String("agent_id", agentID),
			zap.Error(err))
		return nil
	}
	return record
}

// performanceSnapshot reads the caller-owned performance snapshot for the
// candidate set.
func (e *Engine) performanceSnapshot(ctx context.Context, candidates []AgentRecord) map[string]PerformanceData {
	if e.performance == nil || len(candidates) == 0 {
		return nil
	}
	ids := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		ids = append(ids, candidate.AgentID)
	}
	return e.performance.Snapshot(ctx, ids)
}
