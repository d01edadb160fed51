// Package generation wraps the external model providers behind a single
// capability boundary for the research pipeline.
//
// A Generator runs the deep-research flow (plan a brief, write a report with
// a sources section) and bounded single-shot summarization. Providers report
// token usage as events to a per-run listener so callers can account for a
// whole run regardless of how many model calls it took.
//
// Example usage:
//
//	gen, err := generation.NewGenerator(cfg)
//	acc := usage.NewAccumulator()
//	result, err := gen.Generate(ctx, generation.Invocation{
//		Input:    "What changed in battery chemistry this year?",
//		Config:   generation.InvocationConfig{SearchAPI: "none", TraceID: traceID},
//		Listener: acc,
//	})
package generation

import (
	"context"

	"github.com/Amn-7/open-deep-research/internal/usage"
)

// InvocationConfig carries the per-run overrides handed to the provider.
// Empty model entries are omitted so provider defaults apply. Clarification
// is always off: runs are unattended and must never block on a question.
type InvocationConfig struct {
	// SearchAPI selects the search backend ("none" keeps the run offline).
	SearchAPI string

	// ResearchModel drives the planning stage.
	ResearchModel string

	// CompressionModel drives compression of intermediate findings.
	CompressionModel string

	// FinalReportModel drives report writing.
	FinalReportModel string

	// SummarizationModel drives summarization calls.
	SummarizationModel string

	// TraceID correlates provider calls with the run, success or failure.
	TraceID string
}

// Invocation is one deep-research request.
type Invocation struct {
	// Input is the fully assembled generation input: query plus context.
	Input string

	// Config carries the per-run overrides.
	Config InvocationConfig

	// Listener receives token-usage events for every model call of the run.
	// Nil means usage is not tracked.
	Listener usage.Listener
}

// Result is the loosely-typed final state of a deep-research run. Key names
// vary by backend; callers extract values through an ordered key list.
type Result struct {
	State map[string]any
}

// SummarizeRequest is one bounded summarization call.
type SummarizeRequest struct {
	// Text is the (already truncated) text to summarize.
	Text string

	// Prompt precedes the text.
	Prompt string

	// Model overrides the provider's summarization model when non-empty.
	Model string

	// MaxTokens bounds the summary length.
	MaxTokens int

	// Listener receives the call's token-usage event. Nil means untracked.
	Listener usage.Listener
}

// Generator is the research pipeline's view of a model provider.
type Generator interface {
	// Generate runs the deep-research flow once. It is invoked exactly once
	// per run; retries are the caller's decision, not the generator's.
	Generate(ctx context.Context, inv Invocation) (*Result, error)

	// Summarize produces a bounded summary of text. An empty model or empty
	// text yields an empty summary without a provider call.
	Summarize(ctx context.Context, req SummarizeRequest) (string, error)

	// Provider returns the provider name.
	Provider() string
}

// emit forwards a usage event to the listener when one is registered.
func emit(l usage.Listener, event usage.Event) {
	if l != nil {
		l.OnUsage(event)
	}
}
