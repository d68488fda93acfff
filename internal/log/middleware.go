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

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
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

// RequestIDMiddleware adds request ID to logger context
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := extractRequestID(r)
			if requestID == "" {
				next.ServeHTTP(w, r)
				return
			}
			logger := FromContext(r.Context()).With(FieldRequestID, requestID)
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogExpenseAdded logs successful expense creation
func (sl *StructuredLogger) LogExpenseAdded(ctx context.Context, id int64, date, amount, category, subcategory string) {
	fields := NewFields().
		WithExpense(id, date, amount, category, subcategory).
		WithOperation(OpCreate)
	sl.logger.InfoContext(ctx, "Expense added", fields.ToSlice()...)
}

// LogCreditAdded logs successful credit creation
func (sl *StructuredLogger) LogCreditAdded(ctx context.Context, id int64, date, amount string) {
	fields := NewFields().
		WithCredit(id, date, amount).
		WithOperation(OpCreate)
	sl.logger.InfoContext(ctx, "Credit added", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)
	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
