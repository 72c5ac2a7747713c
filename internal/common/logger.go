package common

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Fields represents structured logging fields.
type Fields map[string]any

// ParseLevel converts a configured level name into a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: invalid log level: %s", ErrInvalidConfig, level)
	}
}

// NewLogger builds a logger writing to w in the given format (console or json).
func NewLogger(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "console", "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("%w: invalid log format: %s", ErrInvalidConfig, format)
	}

	return slog.New(handler), nil
}

// SetupLogger configures the global logger to write to stderr.
func SetupLogger(level slog.Level, format string) error {
	logger, err := NewLogger(os.Stderr, level, format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// LogError logs an error with additional context.
func LogError(err error, msg string, fields Fields) {
	attrs := make([]slog.Attr, 0, len(fields)+1)
	attrs = append(attrs, slog.String("error", err.Error()))

	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}

	slog.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}
