package discovery

import "fmt"

// buildSuggestions derives actionable hints from the shape of the results.
// The first three rules are alternatives; the remaining rules fire
// independently.
func buildSuggestions(task TaskAnalysis, recommendations []AgentScore) []string {
	var suggestions []string

	switch {
	case len(recommendations) == 0:
		suggestions = append(suggestions,
			"No agents found matching your requirements",
			fmt.Sprintf("Try searching for agents with '%s' domain expertise", task.Domain),
			"Consider breaking down your task into smaller components",
			"Check if your required capabilities are too specific",
		)
	case len(recommendations) == 1:
		suggestions = append(suggestions,
			"Only one agent found - consider broadening your search criteria")
	case task.Complexity == ComplexityComplex:
		suggestions = append(suggestions,
			"This appears to be a complex task",
			"Consider using multiple agents for different components",
			"Review the top agents' capabilities to ensure full coverage",
		)
	}

	switch task.TaskType {
	case "data_analysis":
		suggestions = append(suggestions,
			"For data analysis tasks, ensure agents have visualization capabilities")
	case "automation":
		suggestions = append(suggestions,
			"For automation, look for agents with workflow management features")
	}

	if len(recommendations) > 0 && recommendations[0].Score < 0.7 {
		suggestions = append(suggestions,
			"Match confidence is moderate - review agent details carefully")
	}

	return suggestions
}
