// Package logging builds the zerolog logger shared across the service
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"gatekeeper/internal/config"

	"github.com/rs/zerolog"
)

// New creates a logger writing to w. A nil writer means stderr.
// Unknown levels fall back to info.
func New(w io.Writer, cfg config.LogConfig) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", "gatekeeper").
		Logger()
}
