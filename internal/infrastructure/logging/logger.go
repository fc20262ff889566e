// Package logging builds the zerolog logger shared by every component.
// Components receive it by value and derive a child logger tagged with
// their name:
//
//	logger := logging.New(cfg.Log, os.Stderr)
//	engineLogger := logger.With().Str("component", "relations").Logger()
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/asakaida/filmrate/internal/infrastructure/config"
	"github.com/rs/zerolog"
)

// New creates a logger writing JSON, or human-readable lines when the
// format is "console", at the configured level. A nil out writes to stderr.
func New(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	return zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "filmrate").
		Logger()
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled":
		return zerolog.Disabled
	}
	return zerolog.InfoLevel
}
