package research

import (
	"strings"
	"unicode/utf8"
)

// DocumentSummaryPrompt precedes the document text handed to summarization
// during ingestion.
const DocumentSummaryPrompt = "Summarize the following document for research context. " +
	"Return 5-10 concise bullet points with key facts, entities, and numbers.\n\n" +
	"Document:\n"

// ReportSummaryPrompt precedes the report text handed to summarization after
// a run completes.
const ReportSummaryPrompt = "Summarize the research report in 5-10 bullet points. " +
	"Focus on key findings, numbers, and conclusions. " +
	"Do not include chain-of-thought.\n\nReport:\n"

// documentSeparator joins individual document summaries inside the
// user-provided context block.
const documentSeparator = "\n\n---\n\n"

// AssembleInput builds the generation input from the query and its context.
// A non-empty parent summary is prepended as do-not-repeat context; non-empty
// document summaries follow as user-provided material. With no context the
// input is just the trimmed query.
func AssembleInput(query, parentSummary string, docSummaries []string) string {
	var blocks []string
	if parentSummary != "" {
		blocks = append(blocks,
			"Previous research summary (DO NOT repeat this; focus on new info / updates / gaps):\n"+parentSummary)
	}

	var kept []string
	for _, s := range docSummaries {
		if s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) > 0 {
		blocks = append(blocks,
			"User-provided documents (use this as additional context):\n"+strings.Join(kept, documentSeparator))
	}

	input := strings.TrimSpace(query)
	if len(blocks) > 0 {
		input = input + "\n\n" + strings.Join(blocks, "\n\n")
	}
	return input
}

// Truncate bounds s to at most max bytes without splitting a UTF-8 rune.
// Non-positive max leaves s untouched.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
