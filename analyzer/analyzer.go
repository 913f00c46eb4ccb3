package analyzer

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscout/discovery"
)

const (
	// baseConfidence is the starting parse confidence before any signal
	// coverage is added.
	baseConfidence = 0.4

	// minConfidence is the floor for non-empty descriptions.
	minConfidence = 0.3

	// sparsePenalty is subtracted when the description carries fewer than
	// sparseTokenCount tokens.
	sparsePenalty = 0.1

	// sparseTokenCount is the token count below which a description is
	// considered too sparse to classify reliably.
	sparseTokenCount = 3

	// maxKeywords caps the extracted keyword list.
	maxKeywords = 10

	// complexTokenCount and complexConjunctions mark the complex tier;
	// moderateTokenCount and moderateConjunctions mark the moderate tier.
	complexTokenCount    = 30
	complexConjunctions  = 3
	moderateTokenCount   = 8
	moderateConjunctions = 1
)

// taskTypeTriggers maps task types to their trigger vocabularies. Entries
// are ordered; when two types tie on trigger hits the earlier entry wins.
var taskTypeTriggers = []struct {
	taskType string
	triggers []string
}{
	{"data_analysis", []string{"analyze", "analysis", "data", "statistics", "metrics", "visualize", "visualization", "chart", "report", "trends", "insights"}},
	{"automation", []string{"automate", "automation", "workflow", "pipeline", "orchestrate", "trigger", "batch"}},
	{"content_generation", []string{"write", "draft", "generate", "compose", "blog", "article", "content", "copywriting"}},
	{"translation", []string{"translate", "translation", "localize", "localization", "multilingual"}},
	{"research", []string{"research", "investigate", "explore", "survey", "literature", "study"}},
	{"scheduling", []string{"schedule", "scheduling", "calendar", "meeting", "appointment", "reminder"}},
}

// domainVocabulary maps cluster terms to the expertise domain they imply.
// The terms mirror the domain clusters the ranker scores against.
var domainVocabulary = map[string]string{
	"technology":     "technology",
	"software":       "technology",
	"programming":    "technology",
	"tech":           "technology",
	"finance":        "finance",
	"financial":      "finance",
	"banking":        "finance",
	"trading":        "finance",
	"accounting":     "finance",
	"fintech":        "finance",
	"healthcare":     "healthcare",
	"medical":        "healthcare",
	"clinical":       "healthcare",
	"pharmaceutical": "healthcare",
	"marketing":      "marketing",
	"advertising":    "marketing",
	"sales":          "marketing",
	"promotion":      "marketing",
	"education":      "education",
	"learning":       "education",
	"training":       "education",
	"academic":       "education",
}

// capabilityTriggers maps capability hints to their trigger vocabularies.
// Entries are ordered so the extracted capability list is deterministic.
var capabilityTriggers = []struct {
	capability string
	triggers   []string
}{
	{"nlp", []string{"summarize", "summarization", "sentiment", "classify", "text", "language", "nlp"}},
	{"search", []string{"search", "find", "lookup", "retrieve", "query"}},
	{"vision", []string{"image", "photo", "picture", "vision", "ocr", "detect"}},
	{"code_generation", []string{"code", "program", "script", "debug", "refactor", "implement"}},
	{"data_processing", []string{"data", "csv", "spreadsheet", "parse", "transform", "etl"}},
	{"translation", []string{"translate", "localize"}},
	{"automation", []string{"automate", "workflow", "orchestrate"}},
	{"scheduling", []string{"schedule", "calendar", "meeting"}},
}

// stopwords are dropped from the keyword list.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"to": true, "of": true, "in": true, "for": true, "on": true,
	"with": true, "as": true, "at": true, "by": true, "from": true,
	"this": true, "that": true, "it": true, "its": true, "into": true,
	"our": true, "your": true, "their": true, "has": true, "have": true,
	"will": true, "would": true, "should": true, "could": true, "can": true,
	"all": true, "any": true, "some": true, "please": true, "need": true,
	"needs": true, "using": true, "use": true, "about": true,
}

// conjunctions contribute to the complexity estimate. A description that
// chains clauses usually describes more than one unit of work.
var conjunctions = map[string]bool{
	"and": true, "then": true, "also": true, "plus": true,
	"after": true, "before": true, "while": true, "additionally": true,
}

// TextAnalyzer derives a structured TaskAnalysis from a plain-text task
// description using token-level vocabulary matching.
type TextAnalyzer struct {
	logger *zap.Logger
}

// NewTextAnalyzer creates a text analyzer. A nil logger is replaced with a
// no-op logger.
func NewTextAnalyzer(logger *zap.Logger) *TextAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextAnalyzer{
		logger: logger.With(zap.String("component", "task_analyzer")),
	}
}

// AnalyzeTask classifies the description into a TaskAnalysis. The analysis
// is deterministic: the same description always yields the same result. The
// returned error is always nil; it exists to satisfy discovery.TaskAnalyzer.
func (a *TextAnalyzer) AnalyzeTask(ctx context.Context, description string) (discovery.TaskAnalysis, error) {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return discovery.TaskAnalysis{
			TaskType:   "general",
			Domain:     "general",
			Complexity: discovery.ComplexitySimple,
			Confidence: minConfidence,
		}, nil
	}

	tokens := tokenize(trimmed)
	keywords := keywordTokens(tokens)
	present := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		present[tok] = true
	}

	analysis := discovery.TaskAnalysis{
		TaskType:             a.classifyTaskType(present),
		Domain:               a.inferDomain(keywords),
		Complexity:           classifyComplexity(tokens),
		RequiredCapabilities: capabilityHints(present),
		Keywords:             keywords,
	}
	analysis.Confidence = parseConfidence(analysis, len(tokens))

	a.logger.Debug("task analyzed",
		zap.String("task_type", analysis.TaskType),
		zap.String("domain", analysis.Domain),
		zap.String("complexity", string(analysis.Complexity)),
		zap.Int("keywords", len(analysis.Keywords)),
		zap.Float64("confidence", analysis.Confidence),
	)

	return analysis, nil
}

// classifyTaskType picks the task type with the most trigger hits. Ties go
// to the earlier vocabulary entry; no hits means "general".
func (a *TextAnalyzer) classifyTaskType(present map[string]bool) string {
	bestType := "general"
	bestHits := 0
	for _, entry := range taskTypeTriggers {
		hits := 0
		for _, trigger := range entry.triggers {
			if present[trigger] {
				hits++
			}
		}
		if hits > bestHits {
			bestType = entry.taskType
			bestHits = hits
		}
	}
	return bestType
}

// inferDomain returns the expertise domain implied by the first keyword
// found in the domain vocabulary, or "general".
func (a *TextAnalyzer) inferDomain(keywords []string) string {
	for _, kw := range keywords {
		if domain, ok := domainVocabulary[kw]; ok {
			return domain
		}
	}
	return "general"
}

// classifyComplexity tiers the description by token count and the number of
// clause-chaining conjunctions it contains.
func classifyComplexity(tokens []string) discovery.Complexity {
	conj := 0
	for _, tok := range tokens {
		if conjunctions[tok] {
			conj++
		}
	}
	switch {
	case len(tokens) > complexTokenCount || conj >= complexConjunctions:
		return discovery.ComplexityComplex
	case len(tokens) >= moderateTokenCount || conj >= moderateConjunctions:
		return discovery.ComplexityModerate
	default:
		return discovery.ComplexitySimple
	}
}

// capabilityHints collects the capability names whose trigger vocabularies
// intersect the token set, in vocabulary order.
func capabilityHints(present map[string]bool) []string {
	var hints []string
	for _, entry := range capabilityTriggers {
		for _, trigger := range entry.triggers {
			if present[trigger] {
				hints = append(hints, entry.capability)
				break
			}
		}
	}
	return hints
}

// parseConfidence measures how much of the description was classified.
// Unrecognized short fragments bottom out at the floor; a description that
// yields a task type, a domain, capabilities, and several keywords reaches
// full confidence.
func parseConfidence(analysis discovery.TaskAnalysis, tokenCount int) float64 {
	confidence := baseConfidence
	if tokenCount < sparseTokenCount {
		confidence -= sparsePenalty
	}
	if analysis.TaskType != "general" {
		confidence += 0.2
	}
	if analysis.Domain != "general" {
		confidence += 0.2
	}
	if len(analysis.RequiredCapabilities) > 0 {
		confidence += 0.1
	}
	if len(analysis.Keywords) >= sparseTokenCount {
		confidence += 0.1
	}
	return math.Max(minConfidence, math.Min(1.0, confidence))
}

// tokenize lowercases the text and splits it into alphanumeric tokens.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_')
	})
}

// keywordTokens filters tokens down to distinct keywords in first-occurrence
// order: stopwords and tokens shorter than three characters are dropped, and
// the list is capped at maxKeywords.
func keywordTokens(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	var keywords []string
	for _, tok := range tokens {
		if len(tok) <= 2 || stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// Ensure TextAnalyzer implements the TaskAnalyzer interface.
var _ discovery.TaskAnalyzer = (*TextAnalyzer)(nil)
