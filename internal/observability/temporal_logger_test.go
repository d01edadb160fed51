package observability

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTemporalLogger(t *testing.T) {
	t.Run("keyvals become structured fields", func(t *testing.T) {
		var buf bytes.Buffer
		tl := NewTemporalLogger(zerolog.New(&buf))

		tl.Info("workflow started", "sessionID", "abc-123", "attempt", 2)

		out := buf.String()
		assert.Contains(t, out, `"component":"temporal-sdk"`)
		assert.Contains(t, out, `"sessionID":"abc-123"`)
		assert.Contains(t, out, `"attempt":2`)
		assert.Contains(t, out, `"message":"workflow started"`)
	})

	t.Run("non-string keys are stringified", func(t *testing.T) {
		var buf bytes.Buffer
		tl := NewTemporalLogger(zerolog.New(&buf))

		tl.Warn("odd key", 42, "value")

		assert.Contains(t, buf.String(), `"42":"value"`)
	})

	t.Run("dangling value is kept", func(t *testing.T) {
		var buf bytes.Buffer
		tl := NewTemporalLogger(zerolog.New(&buf))

		tl.Error("activity failed", "lonely")

		assert.Contains(t, buf.String(), `"extra":"lonely"`)
	})

	t.Run("levels map through", func(t *testing.T) {
		var buf bytes.Buffer
		tl := NewTemporalLogger(zerolog.New(&buf))

		tl.Debug("d")
		tl.Info("i")

		out := buf.String()
		assert.Contains(t, out, `"level":"debug"`)
		assert.Contains(t, out, `"level":"info"`)
	})
}
