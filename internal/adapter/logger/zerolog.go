package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvLogLevel overrides the log level (trace|debug|info|warn|error).
const EnvLogLevel = "TUNNELTAP_LOG_LEVEL"

// Zerolog adapts a zerolog.Logger to the domain Logger port.
type Zerolog struct {
	l zerolog.Logger
}

// New builds the process logger: console output on stderr with RFC3339
// timestamps. Verbose lowers the level to debug; the env var wins over both.
func New(verbose bool) *Zerolog {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if lvl, ok := levelFromEnv(); ok {
		level = lvl
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	l := zerolog.New(output).Level(level).With().Timestamp().Str("app", "tunneltap").Logger()
	return &Zerolog{l: l}
}

// NewWith wraps an existing zerolog.Logger.
func NewWith(l zerolog.Logger) *Zerolog {
	return &Zerolog{l: l}
}

func levelFromEnv() (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvLogLevel))) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	default:
		return zerolog.NoLevel, false
	}
}

func (z *Zerolog) Debug(msg string, args ...any) { emit(z.l.Debug(), msg, args) }
func (z *Zerolog) Info(msg string, args ...any)  { emit(z.l.Info(), msg, args) }
func (z *Zerolog) Warn(msg string, args ...any)  { emit(z.l.Warn(), msg, args) }
func (z *Zerolog) Error(msg string, args ...any) { emit(z.l.Error(), msg, args) }

// emit attaches flat alternating key/value pairs; a trailing odd entry is
// dropped.
func emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		ev = ev.Interface(fmt.Sprint(args[i]), args[i+1])
	}
	ev.Msg(msg)
}
