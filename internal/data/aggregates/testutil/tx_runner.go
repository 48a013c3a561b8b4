package testutil

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/papaya-ledger/internal/data/aggregates"
	"github.com/yungbote/papaya-ledger/internal/platform/dbctx"
)

// InjectedTxRunner is a TxRunner for aggregate tests that can fail at begin or commit.
// When DB is set the body runs in a real transaction, so a commit failure rolls back its writes.
type InjectedTxRunner struct {
	mu sync.Mutex

	DB *gorm.DB

	FailBegin  error
	FailCommit error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failCommit := r.FailCommit
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}

	var bodyErr error
	run := func(dbc dbctx.Context) error {
		if fn == nil {
			return failCommit
		}
		if bodyErr = fn(dbc); bodyErr != nil {
			return bodyErr
		}
		return failCommit
	}

	var err error
	if r.DB != nil {
		err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return run(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	} else {
		err = run(dbctx.Context{Ctx: ctx})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.RollbackCalls++
		if bodyErr == nil && failCommit != nil && !errors.Is(err, failCommit) {
			return errors.Join(failCommit, err)
		}
		return err
	}
	r.CommitCalls++
	return nil
}
