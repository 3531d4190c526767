// Package logger builds the process-wide zerolog logger. The logger is
// constructed once in main and passed explicitly to every component that
// needs it; nothing in this codebase logs through package-level globals.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a logger writing JSON to stderr at the given level. In dev
// environments a console writer is used instead for readable output.
// Unknown levels fall back to info.
func New(env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var l zerolog.Logger
	if env == "dev" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		l = zerolog.New(os.Stderr)
	}
	return l.Level(lvl).With().Timestamp().Str("service", "secure-notes").Logger()
}
