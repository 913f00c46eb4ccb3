package discovery

import (
	"fmt"
	"strings"
)

// ExplainRecommendations renders a discovery result as human-readable text:
// a task analysis summary, search statistics, the ranked agent list with
// match reasons, and suggestions. Pure presentation; safe on empty results.
func ExplainRecommendations(result *DiscoveryResult) string {
	if result == nil {
		return ""
	}

	var lines []string

	task := result.TaskAnalysis
	lines = append(lines,
		"=== Task Analysis ===",
		fmt.Sprintf("Task Type: %s", task.TaskType),
		fmt.Sprintf("Domain: %s", task.Domain),
		fmt.Sprintf("Complexity: %s", task.Complexity),
		fmt.Sprintf("Required Capabilities: %s", strings.Join(task.RequiredCapabilities, ", ")),
		fmt.Sprintf("Key Keywords: %s", strings.Join(headKeywords(task.Keywords, 5), ", ")),
		fmt.Sprintf("Analysis Confidence: %.2f", task.Confidence),
		"",
	)

	lines = append(lines,
		"=== Search Results ===",
		fmt.Sprintf("Total Agents Evaluated: %d", result.TotalAgentsEvaluated),
		fmt.Sprintf("Agents Recommended: %d", len(result.RecommendedAgents)),
		fmt.Sprintf("Search Time: %.2f seconds", result.SearchTimeSeconds),
		"",
	)

	if len(result.RecommendedAgents) > 0 {
		lines = append(lines, "=== Recommended Agents ===")
		for i, score := range result.RecommendedAgents {
			lines = append(lines,
				fmt.Sprintf("\n%d. Agent: %s", i+1, score.AgentID),
				fmt.Sprintf("   Score: %.2f", score.Score),
				fmt.Sprintf("   Confidence: %.2f", score.Confidence),
			)
			if len(score.MatchReasons) > 0 {
				lines = append(lines, "   Match Reasons:")
				for _, reason := range score.MatchReasons {
					lines = append(lines, fmt.Sprintf("     - %s", reason))
				}
			}
		}
	} else {
		lines = append(lines, "=== No Agents Found ===")
	}

	if len(result.Suggestions) > 0 {
		lines = append(lines, "\n=== Suggestions ===")
		for _, suggestion := range result.Suggestions {
			lines = append(lines, fmt.Sprintf("- %s", suggestion))
		}
	}

	return strings.Join(lines, "\n")
}

// ExplainRanking renders one agent's score breakdown: overall score and
// confidence, match reasons, and all six raw sub-scores.
func (r *Ranker) ExplainRanking(score AgentScore) string {
	var lines []string

	lines = append(lines,
		fmt.Sprintf("Overall score: %.2f (confidence: %.2f)", score.Score, score.Confidence))

	if len(score.MatchReasons) > 0 {
		lines = append(lines, "Match reasons:")
		for _, reason := range score.MatchReasons {
			lines = append(lines, fmt.Sprintf("  - %s", reason))
		}
	}

	lines = append(lines,
		"Score breakdown:",
		fmt.Sprintf("  - Capability match: %.2f", score.Metadata["capability_score"]),
		fmt.Sprintf("  - Domain expertise: %.2f", score.Metadata["domain_score"]),
		fmt.Sprintf("  - Keyword relevance: %.2f", score.Metadata["keyword_score"]),
		fmt.Sprintf("  - Performance: %.2f", score.Metadata["performance_score"]),
		fmt.Sprintf("  - Availability: %.2f", score.Metadata["availability_score"]),
		fmt.Sprintf("  - Load: %.2f", score.Metadata["load_score"]),
	)

	return strings.Join(lines, "\n")
}

// headKeywords returns the first n keywords.
func headKeywords(keywords []string, n int) []string {
	if len(keywords) <= n {
		return keywords
	}
	return keywords[:n]
}
