package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New returns a logger writing lines to out at the given level name.
func New(out io.Writer, level string) *slog.Logger {
	return slog.New(NewLineHandler(out, ParseLevel(level)))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(NewLineHandler(io.Discard, slog.Level(100)))
}

// ParseLevel maps debug, info, warn and error to slog levels. Unknown
// names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// ValidLevel reports whether name is a recognized level.
func ValidLevel(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
