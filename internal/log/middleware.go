package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPEnd logs the completion of an HTTP request. 4xx logs at warn and
// 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(clientIP)

	sl.logger.WithComponent(ComponentHTTP).Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogEntryChange logs a persisted entry mutation.
func (sl *StructuredLogger) LogEntryChange(ctx context.Context, op, id string, amountCents int64, category, date string, revision uint64) {
	fields := NewFields().
		WithEntry(id, amountCents, category, date).
		WithOperation(op).
		WithRevision(revision)

	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Entry "+op+"d", fields.ToSlice()...)
}

// LogCategoryChange logs a persisted category mutation.
func (sl *StructuredLogger) LogCategoryChange(ctx context.Context, op, name, kind string, revision uint64) {
	fields := NewFields().
		WithCategory(name, kind).
		WithOperation(op).
		WithRevision(revision)

	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Category "+op+"d", fields.ToSlice()...)
}
