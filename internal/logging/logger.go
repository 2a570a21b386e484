// Package logging provides structured logging for go-watchdog.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger creates a structured logger writing to stderr.
// Format should be "json" or "text".
// Level should be "debug", "info", "warn", or "error".
// Verbose forces debug level and adds source locations.
func NewLogger(format, level string, verbose bool) *slog.Logger {
	return NewLoggerWithWriter(os.Stderr, format, level, verbose)
}

// NewLoggerWithWriter creates a logger that writes to a custom writer.
func NewLoggerWithWriter(w io.Writer, format, level string, verbose bool) *slog.Logger {
	opts := handlerOptions(level, verbose)

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewRingLogger creates a logger that keeps the most recent records in ring
// instead of writing them anywhere. Used while the dashboard owns the terminal.
func NewRingLogger(ring *Ring, level string, verbose bool) *slog.Logger {
	return slog.New(ring.withLevel(handlerOptions(level, verbose).Level))
}

func handlerOptions(level string, verbose bool) *slog.HandlerOptions {
	logLevel := ParseLevel(level)
	if verbose {
		logLevel = slog.LevelDebug
	}
	return &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: verbose,
	}
}

// ParseLevel converts a string level to slog.Level. Unknown levels map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// SetDefault sets the default logger for the slog package.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
