// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// LocationIDKey is the context key for the GHL location (tenant) ID
	LocationIDKey contextKey = "location_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and location_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("request_id", requestID)),
		}
	}

	if locationID, ok := ctx.Value(LocationIDKey).(string); ok && locationID != "" {
		newLogger = newLogger.WithLocationID(locationID)
	}

	return newLogger
}

// WithLocationID returns a logger scoped to a GHL location (tenant).
func (l *Logger) WithLocationID(locationID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("location_id", locationID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// ExportItemFailed logs a single failed property export within a batch.
func (l *Logger) ExportItemFailed(locationID, propertyID string, err error) {
	l.Warn("export_item_failed",
		slog.String("location_id", locationID),
		slog.String("property_id", propertyID),
		slog.String("error", err.Error()),
	)
}

// ExportBatchDone logs the outcome of an export batch.
func (l *Logger) ExportBatchDone(locationID string, exported, total int) {
	l.Info("export_batch_done",
		slog.String("location_id", locationID),
		slog.Int("exported", exported),
		slog.Int("total", total),
	)
}

// TokenRefreshFailed logs a per-tenant token refresh failure during a sweep.
func (l *Logger) TokenRefreshFailed(locationID string, err error) {
	l.Warn("token_refresh_failed",
		slog.String("location_id", locationID),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
