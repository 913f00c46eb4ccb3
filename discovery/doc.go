// Package discovery matches free-form task descriptions to the best-fitting
// agents from a directory of agent records, producing ranked, explainable
// recommendations.
//
// The package combines four pieces:
//
//   - Ranker: computes six weighted sub-scores (capability, domain, keyword,
//     performance, availability, load) per candidate and an overall confidence
//   - Engine: gathers candidates from a Registry, scores them, filters by
//     score and confidence thresholds, and assembles a DiscoveryResult
//   - Suggestions: actionable hints derived from the shape of the results
//   - Explanation: deterministic text rendering of results and score breakdowns
//
// # Basic Usage
//
// Create an engine with a registry client and a task analyzer:
//
//	client := registry.NewClient(registry.DefaultClientConfig("https://registry.example.com"), logger)
//	engine := discovery.NewEngine(client, analyzer.NewTextAnalyzer(logger), nil, logger)
//
//	result, err := engine.DiscoverAgents(ctx, "analyze quarterly sales data",
//	    discovery.WithLimit(5),
//	    discovery.WithMinScore(0.3),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(discovery.ExplainRecommendations(result))
//
// # Scoring
//
// Every candidate receives six sub-scores, each clipped to [0, 1], combined
// with a fixed weight partition (capability 0.35, domain 0.25, keyword 0.20,
// performance 0.10, availability 0.05, load 0.05). Weights are an immutable
// value injected at construction:
//
//	ranker := discovery.NewRanker(discovery.DefaultWeights(), logger)
//	score := ranker.ScoreAgent(agent, task, perfSnapshot)
//	fmt.Println(ranker.ExplainRanking(score))
//
// Missing signals never fail a discovery call: unknown agents score neutral,
// unreachable registries degrade to empty result sets, and malformed
// timestamps fall back to a default availability. Callers distinguish "no
// agents matched" from "no agents exist" via TotalAgentsEvaluated.
//
// # Similar Agents
//
// GetSimilarAgents builds a synthetic task from a target agent's own domain
// and capabilities, runs a normal discovery, and excludes the target:
//
//	similar, err := engine.GetSimilarAgents(ctx, "translator-eu-1", 3)
//
// # Performance Snapshots
//
// Scoring reads a caller-owned performance snapshot. Wire any
// PerformanceProvider (the perf package ships an in-memory store and a
// Redis-backed one):
//
//	store := perf.NewMemoryStore(logger)
//	engine.SetPerformanceProvider(store)
//	engine.UpdatePerformance("agent-1", discovery.PerformanceData{SuccessRate: perf.Float(0.92)})
package discovery
