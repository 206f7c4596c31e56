package slogutil

import (
	"io"
	"log/slog"
	"strings"
)

// levelSilent sits above every standard level.
const levelSilent = slog.Level(100)

// NewLogger creates a logger. format "json" selects slog's JSON handler; anything
// else uses Handler.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(NewHandler(w, opts))
}

// NewDiscardLogger creates a logger that discards all output.
func NewDiscardLogger() *slog.Logger {
	return slog.New(NewHandler(io.Discard, &slog.HandlerOptions{Level: levelSilent}))
}

// LevelFromString converts debug, info, warn or error (case-insensitive) to a
// slog.Level. Unrecognized strings map to info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromVerbosity converts CLI verbosity flags to a level:
// quiet silences everything, 0 keeps the configured level, 1 is info, 2+ is debug.
func LevelFromVerbosity(verbosity int, quiet bool, configured slog.Level) slog.Level {
	if quiet {
		return levelSilent
	}
	switch verbosity {
	case 0:
		return configured
	case 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
