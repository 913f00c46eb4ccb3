package discovery

import "testing"

func TestBuildSuggestions_NoRecommendations(t *testing.T) {
	task := TaskAnalysis{Domain: "finance", Complexity: ComplexityModerate}

	got := buildSuggestions(task, nil)

	want := []string{
		"No agents found matching your requirements",
		"Try searching for agents with 'finance' domain expertise",
		"Consider breaking down your task into smaller components",
		"Check if your required capabilities are too specific",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d suggestions, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("suggestion %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestBuildSuggestions_SingleRecommendation(t *testing.T) {
	task := TaskAnalysis{Domain: "finance", Complexity: ComplexityComplex}
	recs := []AgentScore{{AgentID: "a", Score: 0.9}}

	got := buildSuggestions(task, recs)

	// A single result takes priority over the complexity branch.
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d: %v", len(got), got)
	}
	if got[0] != "Only one agent found - consider broadening your search criteria" {
		t.Errorf("unexpected suggestion: %q", got[0])
	}
}

func TestBuildSuggestions_ComplexTask(t *testing.T) {
	task := TaskAnalysis{Domain: "finance", Complexity: ComplexityComplex}
	recs := []AgentScore{
		{AgentID: "a", Score: 0.9},
		{AgentID: "b", Score: 0.8},
	}

	got := buildSuggestions(task, recs)

	want := []string{
		"This appears to be a complex task",
		"Consider using multiple agents for different components",
		"Review the top agents' capabilities to ensure full coverage",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d suggestions, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("suggestion %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestBuildSuggestions_TaskTypeHints(t *testing.T) {
	recs := []AgentScore{
		{AgentID: "a", Score: 0.9},
		{AgentID: "b", Score: 0.8},
	}

	got := buildSuggestions(TaskAnalysis{TaskType: "data_analysis", Complexity: ComplexityModerate}, recs)
	if len(got) != 1 || got[0] != "For data analysis tasks, ensure agents have visualization capabilities" {
		t.Errorf("unexpected data-analysis suggestions: %v", got)
	}

	got = buildSuggestions(TaskAnalysis{TaskType: "automation", Complexity: ComplexityModerate}, recs)
	if len(got) != 1 || got[0] != "For automation, look for agents with workflow management features" {
		t.Errorf("unexpected automation suggestions: %v", got)
	}
}

func TestBuildSuggestions_ModerateTopScore(t *testing.T) {
	recs := []AgentScore{
		{AgentID: "a", Score: 0.6},
		{AgentID: "b", Score: 0.5},
	}

	got := buildSuggestions(TaskAnalysis{Complexity: ComplexityModerate}, recs)

	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d: %v", len(got), got)
	}
	if got[0] != "Match confidence is moderate - review agent details carefully" {
		t.Errorf("unexpected suggestion: %q", got[0])
	}
}

func TestBuildSuggestions_QuietWhenResultsAreGood(t *testing.T) {
	recs := []AgentScore{
		{AgentID: "a", Score: 0.9},
		{AgentID: "b", Score: 0.85},
	}

	got := buildSuggestions(TaskAnalysis{TaskType: "translation", Complexity: ComplexityModerate}, recs)

	if len(got) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
}

func TestBuildSuggestions_RulesCombine(t *testing.T) {
	task := TaskAnalysis{TaskType: "automation", Complexity: ComplexityComplex}
	recs := []AgentScore{
		{AgentID: "a", Score: 0.6},
		{AgentID: "b", Score: 0.5},
	}

	got := buildSuggestions(task, recs)

	// Complex block, the automation hint, and the moderate-score hint.
	if len(got) != 5 {
		t.Fatalf("expected 5 suggestions, got %d: %v", len(got), got)
	}
	if got[3] != "For automation, look for agents with workflow management features" {
		t.Errorf("expected automation hint fourth, got %q", got[3])
	}
	if got[4] != "Match confidence is moderate - review agent details carefully" {
		t.Errorf("expected moderate hint last, got %q", got[4])
	}
}
