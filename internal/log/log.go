// Package log is the bridge's logging layer: a thin slog wrapper with
// env-driven setup and per-component scoping.
package log

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// Init configures the process logger. An empty level falls back to
// BRIDGE_LOG_LEVEL, then "info". Output is human-readable text for
// interactive use and JSON when BRIDGE_ENV=production. Only the first
// call takes effect.
func Init(level string) {
	once.Do(func() {
		if level == "" {
			level = os.Getenv("BRIDGE_LOG_LEVEL")
		}
		opts := &slog.HandlerOptions{Level: parseLevel(level)}

		if os.Getenv("BRIDGE_ENV") == "production" {
			logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
		} else {
			logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
		}
		slog.SetDefault(logger)
	})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// L returns the process logger, initializing it on first use.
func L() *slog.Logger {
	if logger == nil {
		Init("")
	}
	return logger
}

// Component returns a logger scoped to one bridge subsystem. Long-lived
// components (sync client, scanner, hubs) tag their lines this way so one
// bridge's interleaved output can be filtered per concern.
func Component(name string) *slog.Logger {
	return L().With("component", name)
}

// Debug logs at debug level on the process logger.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level on the process logger.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level on the process logger.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level on the process logger.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a process logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
