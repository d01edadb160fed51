package research

import (
	"fmt"
	"strings"
)

// RunFacts are the enumerable facts of a completed run that the reasoning
// narrative is allowed to mention. Nothing here is model output beyond the
// already-bounded brief.
type RunFacts struct {
	// SearchAPI is the search backend the run was configured with.
	SearchAPI string
	// Brief is the research brief derived by the generation workflow,
	// already truncated by the caller.
	Brief string
	// SourceCount is how many sources were kept for citations.
	SourceCount int
	// UsedParentContext is true when a prior summary was part of the input.
	UsedParentContext bool
	// DocumentSummaries is how many uploaded-document summaries were
	// incorporated.
	DocumentSummaries int
}

// ComposeReasoning renders the bounded narrative persisted with a successful
// run. It enumerates facts only and never includes chain-of-thought.
func ComposeReasoning(f RunFacts) string {
	searchAPI := f.SearchAPI
	if searchAPI == "" {
		searchAPI = "default"
	}

	lines := []string{
		"High-level reasoning:",
		"- Used the deep-research generation workflow (clarify, brief, supervisor, final report).",
		fmt.Sprintf("- Search API: %s.", searchAPI),
	}

	if f.Brief != "" {
		lines = append(lines, fmt.Sprintf("- Planning: derived brief: %s", f.Brief))
	} else {
		lines = append(lines, "- Planning: derived a focused brief from the query.")
	}

	if f.SourceCount > 0 {
		lines = append(lines, fmt.Sprintf("- Source selection: kept %d sources for citations.", f.SourceCount))
	} else {
		lines = append(lines, "- Source selection: kept the most relevant sources.")
	}

	if f.UsedParentContext {
		lines = append(lines, "- Continuation: used prior summary to avoid repeating topics.")
	}
	if f.DocumentSummaries > 0 {
		lines = append(lines, fmt.Sprintf("- User documents: incorporated %d uploaded summaries.", f.DocumentSummaries))
	}

	return strings.Join(lines, "\n")
}

// TruncateBrief bounds the research brief, marking truncation with an
// ellipsis so readers know the stored brief is a prefix.
func TruncateBrief(brief string, max int) string {
	brief = strings.TrimSpace(brief)
	if max <= 0 || len(brief) <= max {
		return brief
	}
	return Truncate(brief, max) + "..."
}

// FailureReasoning renders the narrative persisted with a failed run. Only
// the error kind and message are recorded, never a stack trace.
func FailureReasoning(kind, msg string) string {
	return fmt.Sprintf("Run failed: %s: %s", kind, msg)
}
