// Package logging builds the structured loggers used by picmp.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Levels and formats accepted by NewLogger.
var (
	Levels  = []string{"debug", "info", "warn", "error"}
	Formats = []string{"text", "json"}
)

// NewLogger creates a logger writing to stderr with the given level
// (debug, info, warn, error) and format (text, json).
func NewLogger(level, format string) *slog.Logger {
	return NewLoggerWithWriter(level, format, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to w.
func NewLoggerWithWriter(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NopLogger returns a logger that discards all output.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithComponent tags every record of logger with the component name.
// A nil logger yields a NopLogger.
func WithComponent(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = NopLogger()
	}
	return logger.With(slog.String(KeyComponent, name))
}

// ValidLevel reports whether level is one of Levels. "warning" is accepted
// as an alias of "warn".
func ValidLevel(level string) bool {
	return level == "warning" || contains(Levels, level)
}

// ValidFormat reports whether format is one of Formats.
func ValidFormat(format string) bool {
	return contains(Formats, format)
}

func parseLevel(level string) slog.Level {
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

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Common attribute keys for consistent logging.
const (
	KeyDestination = "destination"
	KeyAddress     = "address"
	KeyIdentifier  = "identifier"
	KeySequence    = "seq"
	KeyRTT         = "rtt"
	KeyReason      = "reason"
	KeyError       = "error"
	KeyComponent   = "component"
	KeyDuration    = "duration"
	KeyCount       = "count"
)
