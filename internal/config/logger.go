package config

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production gets JSON on stdout at
// info level; everything else gets human-readable text at debug level.
func NewLogger(env string) *slog.Logger {
	opts := &slog.HandlerOptions{}

	var handler slog.Handler
	if env == "production" {
		opts.Level = slog.LevelInfo
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
