// Package analyzer turns free-form task descriptions into the structured
// task profiles the discovery engine scores against.
//
// TextAnalyzer is a deterministic, dependency-free text classifier. It
// lowercases and tokenizes the description, then derives:
//
//   - TaskType: matched against small trigger vocabularies (data analysis,
//     automation, content generation, translation, research, scheduling)
//   - Domain: the first token that belongs to a known expertise cluster
//     (technology, finance, healthcare, marketing, education)
//   - Complexity: from token count and conjunction density
//   - RequiredCapabilities: capability hints such as nlp, search, vision,
//     code_generation, and data_processing
//   - Keywords: stopword-filtered tokens in first-occurrence order
//   - Confidence: how much of the description the analyzer could classify
//
// # Basic Usage
//
//	ta := analyzer.NewTextAnalyzer(logger)
//	analysis, err := ta.AnalyzeTask(ctx, "analyze quarterly sales data and chart the trends")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(analysis.TaskType, analysis.Domain, analysis.Complexity)
//
// The same input always produces the same analysis. There are no network
// calls and no model downloads, so AnalyzeTask is safe on hot paths; richer
// analyzers (LLM-backed, embedding-based) can replace it by implementing
// discovery.TaskAnalyzer.
package analyzer
