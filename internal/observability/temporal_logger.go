package observability

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// TemporalLogger bridges the Temporal SDK's keyval-style logger onto zerolog
// so workflow and activity logs land in the same structured stream as the
// rest of the service.
type TemporalLogger struct {
	base zerolog.Logger
}

var _ log.Logger = (*TemporalLogger)(nil)

// NewTemporalLogger wraps the given zerolog.Logger, tagging every entry with
// the temporal-sdk component.
func NewTemporalLogger(base zerolog.Logger) *TemporalLogger {
	return &TemporalLogger{base: base.With().Str("component", "temporal-sdk").Logger()}
}

func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	emit(l.base.Debug(), msg, keyvals)
}

func (l *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	emit(l.base.Info(), msg, keyvals)
}

func (l *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	emit(l.base.Warn(), msg, keyvals)
}

func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	emit(l.base.Error(), msg, keyvals)
}

// emit attaches the SDK's alternating key-value pairs as structured fields.
// A dangling value is logged under "extra" rather than dropped.
func emit(ev *zerolog.Event, msg string, keyvals []interface{}) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		ev = ev.Interface(key, keyvals[i+1])
	}
	if len(keyvals)%2 == 1 {
		ev = ev.Interface("extra", keyvals[len(keyvals)-1])
	}
	ev.Msg(msg)
}
