package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ToContext returns a context carrying l. The logging middleware uses
// it to hand each request a logger preloaded with request fields.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger carried by ctx, or the process logger when
// ctx has none. Safe on a nil context.
func From(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return L()
}
