package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/papaya-ledger/internal/domain"
	"github.com/yungbote/papaya-ledger/internal/data/repos/testutil"
	"github.com/yungbote/papaya-ledger/internal/platform/dbctx"
)

func TestMemberCreateStartsCountersAtZero(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewMemberRepo(db, testutil.Logger(t))

	in := &types.Member{Owner: "alice", Name: "Bob", Received: testutil.Dec("99")}
	rows, err := repo.Create(dbctx.New(ctx), []*types.Member{in})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rows[0].ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}
	got := testutil.ReloadMember(t, ctx, db, rows[0].ID)
	if !got.Aggregates().IsZero() {
		t.Fatalf("counters: want zero got=%+v", got.Aggregates())
	}
}

func TestMemberIncrementIsAdditive(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewMemberRepo(db, testutil.Logger(t))
	m := testutil.SeedMember(t, ctx, db, "alice", "Bob")

	dbc := dbctx.New(ctx)
	if err := repo.Increment(dbc, m.ID, types.EffectOf(types.TypeTopUp, testutil.Dec("100"), testutil.Dec("2"), 1)); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if err := repo.Increment(dbc, m.ID, types.EffectOf(types.TypePayout, testutil.Dec("30.5"), testutil.Dec("0"), 1)); err != nil {
		t.Fatalf("Increment: %v", err)
	}

	got := testutil.ReloadMember(t, ctx, db, m.ID)
	want := types.Effect{Received: testutil.Dec("100"), PaidOut: testutil.Dec("30.5"), Charges: testutil.Dec("2")}
	if !got.Aggregates().Equal(want) {
		t.Fatalf("aggregates: want=%+v got=%+v", want, got.Aggregates())
	}
}

func TestMemberIncrementMissingMember(t *testing.T) {
	db := testutil.DB(t)
	repo := NewMemberRepo(db, testutil.Logger(t))
	err := repo.Increment(dbctx.New(context.Background()), uuid.New(), types.Effect{Received: testutil.Dec("1")})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("want ErrRecordNotFound got=%v", err)
	}
}

func TestMemberListScopesByOwner(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewMemberRepo(db, testutil.Logger(t))
	testutil.SeedMember(t, ctx, db, "alice", "Zed")
	testutil.SeedMember(t, ctx, db, "alice", "Amy")
	testutil.SeedMember(t, ctx, db, "carol", "Dan")

	rows, err := repo.List(dbctx.New(ctx), types.MemberFilter{Owner: " ALICE "})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len: want=2 got=%d", len(rows))
	}
	if rows[0].Name != "Amy" || rows[1].Name != "Zed" {
		t.Fatalf("order: want Amy,Zed got %s,%s", rows[0].Name, rows[1].Name)
	}

	all, err := repo.List(dbctx.New(ctx), types.MemberFilter{})
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len all: want=3 got=%d", len(all))
	}
}

func TestMemberIncrementRollsBackWithTx(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewMemberRepo(db, testutil.Logger(t))
	m := testutil.SeedMember(t, ctx, db, "alice", "Bob")

	sentinel := errors.New("abort")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.Increment(dbctx.Context{Ctx: ctx, Tx: tx}, m.ID, types.Effect{Frozen: testutil.Dec("5")}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("want sentinel got=%v", err)
	}
	got := testutil.ReloadMember(t, ctx, db, m.ID)
	if !got.Frozen.IsZero() {
		t.Fatalf("frozen: want=0 after rollback got=%s", got.Frozen)
	}
}

func TestMemberUpdateProfileLeavesCounters(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewMemberRepo(db, testutil.Logger(t))
	m := testutil.SeedMember(t, ctx, db, "alice", "Bob")
	if err := repo.Increment(dbctx.New(ctx), m.ID, types.Effect{Received: testutil.Dec("10")}); err != nil {
		t.Fatalf("Increment: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		locked, err := repo.LockByID(dbc, m.ID)
		if err != nil || locked == nil {
			t.Fatalf("LockByID: %v", err)
		}
		locked.Name = "Bobby"
		locked.Opening = testutil.Dec("7")
		locked.Received = testutil.Dec("999")
		return repo.UpdateProfile(dbc, locked)
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	got := testutil.ReloadMember(t, ctx, db, m.ID)
	if got.Name != "Bobby" || !got.Opening.Equal(testutil.Dec("7")) || !got.Received.Equal(testutil.Dec("10")) {
		t.Fatalf("want name=Bobby opening=7 received=10 got=%s/%s/%s", got.Name, got.Opening, got.Received)
	}

	missing, err := repo.LockByID(dbctx.New(ctx), uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("LockByID missing: got=%v err=%v", missing, err)
	}
	if err := repo.UpdateProfile(dbctx.New(ctx), &types.Member{ID: uuid.New(), Name: "x"}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("UpdateProfile missing: want ErrRecordNotFound got=%v", err)
	}
}
