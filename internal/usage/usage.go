// Package usage accumulates token consumption across the generation calls of
// one research run. Providers report usage in two shapes — prompt/completion
// (OpenAI-style) and input/output (Anthropic-style) — and a single run may mix
// both when summarization runs on a different provider than research.
package usage

import "sync"

// Event is one usage report from a generation call. Exactly one shape is
// populated; the accumulator checks the prompt/completion pair first and falls
// back to input/output.
type Event struct {
	// PromptTokens and CompletionTokens carry OpenAI-shaped usage.
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`

	// InputTokens and OutputTokens carry Anthropic-shaped usage.
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`

	// Model is the model that produced this usage, when known.
	Model string `json:"model,omitempty"`
}

// Totals is the summed usage of a run.
type Totals struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Listener receives usage events from generation calls.
type Listener interface {
	OnUsage(ev Event)
}

// Accumulator sums usage events across a run. Safe for concurrent use: the
// research and summarization calls of one run may report from different
// goroutines.
type Accumulator struct {
	mu     sync.Mutex
	input  int
	output int
	events int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// OnUsage adds one event to the running totals. The prompt/completion pair is
// checked first; if both are zero the input/output pair is used. An event
// with all four fields zero still counts as seen but adds nothing.
func (a *Accumulator) OnUsage(ev Event) {
	in, out := ev.PromptTokens, ev.CompletionTokens
	if in == 0 && out == 0 {
		in, out = ev.InputTokens, ev.OutputTokens
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.input += in
	a.output += out
	a.events++
}

// Totals returns the summed usage so far. TotalTokens is always the sum of
// the directions, never read from the provider.
func (a *Accumulator) Totals() Totals {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Totals{
		InputTokens:  a.input,
		OutputTokens: a.output,
		TotalTokens:  a.input + a.output,
	}
}

// Events returns how many usage events have been recorded.
func (a *Accumulator) Events() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.events
}

// Compile-time check that *Accumulator implements Listener.
var _ Listener = (*Accumulator)(nil)
