// Package logger sets up the zerolog logger shared by the CLI and the runtime.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a logger writing to w. Unknown levels fall back to info.
// When json is false the output is the human-readable console format.
func New(w io.Writer, level string, json bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if !json {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Setup builds a logger with New and installs it as the global logger.
func Setup(w io.Writer, level string, json bool) zerolog.Logger {
	l := New(w, level, json)
	log.Logger = l
	return l
}
