package observability

import (
	"log/slog"
	"os"
)

// NewLogger returns the process logger: JSON on stdout, debug in dev, trace ids attached.
func NewLogger(env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewTraceHandler(handler)).With("service", "discoveria")
}
