package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/papaya-ledger/internal/data/repos/testutil"
	"github.com/yungbote/papaya-ledger/internal/domain/ledger"
	"github.com/yungbote/papaya-ledger/internal/platform/dbctx"
)

func TestLockTimeoutStatement(t *testing.T) {
	if got := lockTimeoutStatement("postgres", 1500*time.Millisecond); got != "SET LOCAL lock_timeout = '1500ms'" {
		t.Fatalf("postgres: got=%q", got)
	}
	if got := lockTimeoutStatement("sqlite", time.Second); got != "" {
		t.Fatalf("sqlite should not set a lock timeout, got=%q", got)
	}
	if got := lockTimeoutStatement("postgres", 0); got != "" {
		t.Fatalf("zero timeout: got=%q", got)
	}
}

func TestGormTxRunnerRollsBackOnError(t *testing.T) {
	db := testutil.DB(t)
	runner := NewGormTxRunner(db)
	boom := errors.New("boom")

	err := runner.InTx(context.Background(), func(dbc dbctx.Context) error {
		m := testutil.SeedMember(t, dbc.Ctx, dbc.Tx, "alice", "Rolled")
		if m == nil {
			t.Fatalf("seed returned nil")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want=boom got=%v", err)
	}
	var n int64
	if err := db.Model(&ledger.Member{}).Where("name = ?", "Rolled").Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("rolled back member persisted: count=%d", n)
	}
}
