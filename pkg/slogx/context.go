package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithOp tags the context logger with an operation id so every line emitted
// while handling one session operation can be correlated.
func WithOp(ctx context.Context, opID string) context.Context {
	return WithContext(ctx, FromContext(ctx).With("op_id", opID))
}
