package logger

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// With derives a child logger carrying fields and stores it on ctx.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, loggerKey{}, From(ctx).With(fields...))
}

// WithPrincipal tags every later log line of the request with the caller.
func WithPrincipal(ctx context.Context, principalType string, principalID int64) context.Context {
	return With(ctx, slog.Group("principal",
		slog.String("type", principalType),
		slog.Int64("id", principalID),
	))
}

// From returns the request logger, falling back to the process logger.
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return LoggerWrapper()
}
