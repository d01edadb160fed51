package usage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulator_MixedShapes(t *testing.T) {
	acc := NewAccumulator()

	// OpenAI-shaped event.
	acc.OnUsage(Event{PromptTokens: 100, CompletionTokens: 40})
	// Anthropic-shaped event.
	acc.OnUsage(Event{InputTokens: 200, OutputTokens: 60})

	got := acc.Totals()
	assert.Equal(t, 300, got.InputTokens)
	assert.Equal(t, 100, got.OutputTokens)
	assert.Equal(t, 400, got.TotalTokens)
	assert.Equal(t, 2, acc.Events())
}

func TestAccumulator_PromptShapeWins(t *testing.T) {
	acc := NewAccumulator()

	// When both shapes are present, the prompt/completion pair is used.
	acc.OnUsage(Event{
		PromptTokens: 10, CompletionTokens: 5,
		InputTokens: 999, OutputTokens: 999,
	})

	got := acc.Totals()
	assert.Equal(t, 10, got.InputTokens)
	assert.Equal(t, 5, got.OutputTokens)
}

func TestAccumulator_EmptyEvent(t *testing.T) {
	acc := NewAccumulator()

	acc.OnUsage(Event{})

	got := acc.Totals()
	assert.Equal(t, Totals{}, got)
	assert.Equal(t, 1, acc.Events())
}

func TestAccumulator_ZeroBeforeAnyEvent(t *testing.T) {
	acc := NewAccumulator()
	assert.Equal(t, Totals{}, acc.Totals())
	assert.Equal(t, 0, acc.Events())
}

func TestAccumulator_OneSidedShapes(t *testing.T) {
	acc := NewAccumulator()

	// A completion-only event is still OpenAI-shaped.
	acc.OnUsage(Event{CompletionTokens: 8})
	// An input-only event is Anthropic-shaped.
	acc.OnUsage(Event{InputTokens: 12})

	got := acc.Totals()
	assert.Equal(t, 12, got.InputTokens)
	assert.Equal(t, 8, got.OutputTokens)
	assert.Equal(t, 20, got.TotalTokens)
}

func TestAccumulator_Concurrent(t *testing.T) {
	acc := NewAccumulator()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acc.OnUsage(Event{PromptTokens: 1, CompletionTokens: 1})
		}()
	}
	wg.Wait()

	got := acc.Totals()
	assert.Equal(t, 50, got.InputTokens)
	assert.Equal(t, 50, got.OutputTokens)
	assert.Equal(t, 100, got.TotalTokens)
	assert.Equal(t, 50, acc.Events())
}
