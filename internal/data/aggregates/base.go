package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/papaya-ledger/internal/domain/aggregates"
	"github.com/yungbote/papaya-ledger/internal/platform/dbctx"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
)

const tracerName = "github.com/yungbote/papaya-ledger/internal/data/aggregates"

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks

	// MaxAttempts bounds re-runs of a write that failed with CodeRetryable. Defaults to 3.
	MaxAttempts int
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = 3
	}
	return d
}

// executeWrite runs fn in one transaction, maps the failure to an aggregate code and
// re-runs the whole transaction while the failure is retryable.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()

	wait := backoff.NewExponentialBackOff()
	wait.InitialInterval = 20 * time.Millisecond
	wait.MaxInterval = 250 * time.Millisecond
	wait.Reset()

	var mapped error
	attempt := 1
	for ; ; attempt++ {
		mapped = MapError(op, deps.Runner.InTx(ctx, fn))
		if mapped == nil || !domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			break
		}
		if attempt >= deps.MaxAttempts || ctx.Err() != nil {
			break
		}
		deps.Hooks.IncRetry(op)
		select {
		case <-ctx.Done():
		case <-time.After(wait.NextBackOff()):
		}
	}

	status := aggregateErrorStatus(mapped)
	span.SetAttributes(attribute.String("aggregate.status", status), attribute.Int("aggregate.attempts", attempt))
	if mapped != nil {
		span.RecordError(mapped)
		span.SetStatus(codes.Error, status)
		switch domainagg.CodeOf(mapped) {
		case domainagg.CodeConflict:
			deps.Hooks.IncConflict(op)
		case domainagg.CodePartialLedger:
			deps.Hooks.IncPartialLedger(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
