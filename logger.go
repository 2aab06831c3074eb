package decaf

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with decaf-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithUnit adds unit fields to the logger (useful for tagging operations).
func (l *Logger) WithUnit(kind, name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("kind", kind, "unit", name),
	}
}

// LogUnitSave logs the outcome of saving one unit.
func (l *Logger) LogUnitSave(ctx context.Context, kind, name string, classes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "unit save failed",
			"kind", kind,
			"unit", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "unit saved",
			"kind", kind,
			"unit", name,
			"classes", classes,
		)
	}
}

// LogSaveAll logs the outcome of saving all units of a run.
func (l *Logger) LogSaveAll(ctx context.Context, units, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "save completed with failures",
			"units", units,
			"failed", failed,
		)
	} else {
		l.InfoContext(ctx, "save completed",
			"units", units,
		)
	}
}
