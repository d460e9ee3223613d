// Package logger builds the slog loggers the binaries share: JSON to stdout
// for server mode, text to stderr for interactive CLI runs.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Config selects the handler level, encoding, and destination.
type Config struct {
	Level  string
	Format string
	Output string
}

// NewLogger builds a logger from the config. A non-nil writer overrides
// Output, which keeps test output captured.
func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	if w == nil {
		switch cfg.Output {
		case "stderr":
			w = os.Stderr
		default:
			w = os.Stdout
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
