package aggregates

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/papaya-ledger/internal/domain/aggregates"
	"github.com/yungbote/papaya-ledger/internal/platform/dbctx"
)

// TxRunner is the transaction boundary every ledger write runs inside.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

// DefaultLockTimeout bounds how long a write waits on a locked row before failing
// with a retryable lock_not_available.
const DefaultLockTimeout = 5 * time.Second

type gormTxRunner struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return NewGormTxRunnerWithLockTimeout(db, DefaultLockTimeout)
}

// NewGormTxRunnerWithLockTimeout sets a per-transaction lock_timeout on Postgres.
// Zero leaves the server default. Other dialects ignore it.
func NewGormTxRunnerWithLockTimeout(db *gorm.DB, lockTimeout time.Duration) TxRunner {
	return &gormTxRunner{db: db, lockTimeout: lockTimeout}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "ledger.tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if stmt := lockTimeoutStatement(tx.Dialector.Name(), r.lockTimeout); stmt != "" {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

func lockTimeoutStatement(dialect string, d time.Duration) string {
	if dialect != "postgres" || d <= 0 {
		return ""
	}
	return fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.Milliseconds())
}
