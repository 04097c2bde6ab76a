// Package logger builds the process-wide structured logger. It is constructed
// once in main and injected into every component that logs; there is no
// ambient global logger.
package logger

import (
	"log/slog"
	"os"
)

// New returns a slog logger appropriate for the environment: human-readable
// text locally, JSON everywhere else.
func New(environment string) *slog.Logger {
	if environment == "local" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
