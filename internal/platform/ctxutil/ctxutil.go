package ctxutil

import (
	"context"

	"github.com/yungbote/papaya-ledger/internal/domain/auth"
)

type (
	traceDataKey struct{}
	callerKey    struct{}
)

type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// WithCaller stores the authenticated caller resolved by the auth middleware.
func WithCaller(ctx context.Context, c *auth.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func GetCaller(ctx context.Context) *auth.Caller {
	if c, ok := ctx.Value(callerKey{}).(*auth.Caller); ok {
		return c
	}
	return nil
}
