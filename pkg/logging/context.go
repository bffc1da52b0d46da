package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey int

const (
	loggerKey contextKey = iota
	requestIDKey
)

// WithLogger returns ctx carrying logger.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger ctx carries, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	return Ctx(ctx, Default())
}

// Ctx returns the logger ctx carries, or fallback.
func Ctx(ctx context.Context, fallback *zerolog.Logger) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	return fallback
}

// WithRequestID returns ctx carrying the trace id the transport sends as
// X-Request-ID. Retries of one call reuse it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the trace id ctx carries, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithEvent tags the context logger with an event id.
func WithEvent(ctx context.Context, eventID int) context.Context {
	return with(ctx, func(c zerolog.Context) zerolog.Context { return c.Int("event_id", eventID) })
}

// WithUser tags the context logger with a user id.
func WithUser(ctx context.Context, userID int) context.Context {
	return with(ctx, func(c zerolog.Context) zerolog.Context { return c.Int("user_id", userID) })
}

// WithOperation tags the context logger with an operation name.
func WithOperation(ctx context.Context, op string) context.Context {
	return with(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("operation", op) })
}

func with(ctx context.Context, fn func(zerolog.Context) zerolog.Context) context.Context {
	l := fn(FromContext(ctx).With()).Logger()
	return WithLogger(ctx, &l)
}
