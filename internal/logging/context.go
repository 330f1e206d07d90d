package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSource names the log source being tailed.
	FieldSource = "source"
	// FieldSessionID identifies one tail run; archive rows carry the same value.
	FieldSessionID = "session_id"
	// FieldCursor is the paged-results cookie a poll was sent with.
	FieldCursor = "cursor"
	// FieldNextCursor is the cookie returned by the server.
	FieldNextCursor = "next_cursor"
	// FieldEntries counts entries in a page.
	FieldEntries = "entries"
	// FieldAttempt counts consecutive failed polls.
	FieldAttempt = "attempt"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey int

const (
	sessionIDKey contextKey = iota
	sourceKey
)

// WithSessionID stamps ctx with the tail session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the session identifier stored on ctx.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// WithSource stamps ctx with the source being tailed.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

// SourceFromContext returns the source stored on ctx.
func SourceFromContext(ctx context.Context) (string, bool) {
	source, ok := ctx.Value(sourceKey).(string)
	return source, ok && source != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if source, ok := SourceFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSource, source))
	}
	if id, ok := SessionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSessionID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
