package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig controls the process logger. Servers run json to stdout;
// the migrate CLI uses console output.
type LoggingConfig struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	Level string

	// Format is json or console.
	Format string

	// Output is stdout or stderr.
	Output string

	// AddSource annotates entries with the calling file and line.
	AddSource bool

	// TimeFormat for timestamps; RFC3339 when empty.
	TimeFormat string
}

// NewLogger builds the zerolog root logger for a process. All service
// loggers derive from this one so every entry shares the same format and
// level.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	out := destination(cfg.Output)

	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	if format := strings.ToLower(cfg.Format); format == "console" || format == "pretty" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: zerolog.TimeFieldFormat}
	}

	builder := zerolog.New(out).With().Timestamp()
	if cfg.AddSource {
		builder = builder.Caller()
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	return builder.Logger().Level(level)
}

func destination(output string) io.Writer {
	if strings.ToLower(output) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel maps a config string to a zerolog level, defaulting to info.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}
