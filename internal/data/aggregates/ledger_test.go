package aggregates_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/papaya-ledger/internal/data/aggregates"
	aggtestutil "github.com/yungbote/papaya-ledger/internal/data/aggregates/testutil"
	"github.com/yungbote/papaya-ledger/internal/data/repos"
	"github.com/yungbote/papaya-ledger/internal/data/repos/testutil"
	types "github.com/yungbote/papaya-ledger/internal/domain"
	domainagg "github.com/yungbote/papaya-ledger/internal/domain/aggregates"
	"github.com/yungbote/papaya-ledger/internal/domain/auth"
	"github.com/yungbote/papaya-ledger/internal/domain/ledger"
	"github.com/yungbote/papaya-ledger/internal/platform/dbctx"
)

var (
	admin = &auth.Caller{ID: uuid.New(), Name: "root", Role: auth.RoleAdmin}
	alice = &auth.Caller{ID: uuid.New(), Name: "alice", Role: "Employee"}
)

type published struct {
	Kind    string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, kind string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Kind: kind, Payload: payload})
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type fixture struct {
	db      *gorm.DB
	members repos.MemberRepo
	txns    repos.TransactionRepo
	pub     *recordingPublisher
	hooks   *aggtestutil.HooksRecorder
	agg     domainagg.LedgerAggregate
}

type fixtureOption func(*aggregates.LedgerAggregateDeps)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	f := &fixture{
		db:      db,
		members: repos.NewMemberRepo(db, log),
		txns:    repos.NewTransactionRepo(db, log),
		pub:     &recordingPublisher{},
		hooks:   &aggtestutil.HooksRecorder{},
	}
	deps := aggregates.LedgerAggregateDeps{
		Base:         aggregates.BaseDeps{DB: db, Log: log, Hooks: f.hooks},
		Members:      f.members,
		Transactions: f.txns,
		Publisher:    f.pub,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.agg = aggregates.NewLedgerAggregate(deps)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) create(t *testing.T, caller *auth.Caller, m *types.Member, typ types.TransactionType, amount, fee string) *types.Transaction {
	t.Helper()
	res, err := f.agg.CreateTransaction(context.Background(), caller, domainagg.CreateTransactionInput{
		MemberID: m.ID,
		Type:     string(typ),
		Amount:   dec(amount),
		Fee:      dec(fee),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	return res.Transaction
}

func (f *fixture) member(t *testing.T, id uuid.UUID) *types.Member {
	t.Helper()
	return testutil.ReloadMember(t, context.Background(), f.db, id)
}

// assertLedgerConsistent checks every member's counters against its attributed transactions.
func (f *fixture) assertLedgerConsistent(t *testing.T) {
	t.Helper()
	ctx := dbctx.New(context.Background())
	members, err := f.members.List(ctx, types.MemberFilter{})
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	txns, err := f.txns.List(ctx, types.TransactionFilter{Limit: repos.MaxListLimit})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	want := map[uuid.UUID]types.Effect{}
	for _, tx := range txns {
		want[tx.MemberID] = want[tx.MemberID].Add(types.EffectOfTransaction(tx, 1))
	}
	for _, m := range members {
		if !m.Aggregates().Equal(want[m.ID]) {
			t.Fatalf("member %s: counters=%+v sum of transactions=%+v", m.Name, m.Aggregates(), want[m.ID])
		}
	}
}

func TestCreateTopUpThenPayout(t *testing.T) {
	f := newFixture(t)
	m := testutil.SeedMember(t, context.Background(), f.db, "alice", "Bob")

	f.create(t, alice, m, types.TypeTopUp, "100", "2")
	got := f.member(t, m.ID)
	if !got.Received.Equal(dec("100")) || !got.Charges.Equal(dec("2")) {
		t.Fatalf("after top up: want received=100 charges=2 got=%s/%s", got.Received, got.Charges)
	}

	f.create(t, alice, m, types.TypePayout, "50", "0")
	got = f.member(t, m.ID)
	want := types.Effect{Received: dec("100"), PaidOut: dec("50"), Charges: dec("2")}
	if !got.Aggregates().Equal(want) {
		t.Fatalf("after payout: want=%+v got=%+v", want, got.Aggregates())
	}
	f.assertLedgerConsistent(t)
}

func TestCreatePublishesTransactionThenMember(t *testing.T) {
	f := newFixture(t)
	m := testutil.SeedMember(t, context.Background(), f.db, "alice", "Bob")

	tx := f.create(t, alice, m, types.TypeTopUp, "10", "0")

	kinds := f.pub.kinds()
	if len(kinds) != 2 || kinds[0] != types.EventTransactionCreated || kinds[1] != types.EventMemberUpdated {
		t.Fatalf("events: want=[transaction.created member.updated] got=%v", kinds)
	}
	if got := f.pub.events[0].Payload.(*types.Transaction); got.ID != tx.ID {
		t.Fatalf("transaction payload: want=%s got=%s", tx.ID, got.ID)
	}
	snap := f.pub.events[1].Payload.(*types.Member)
	if !snap.Received.Equal(dec("10")) {
		t.Fatalf("member payload should be post-mutation: received=%s", snap.Received)
	}
}

func TestPublishedKindsAreDeclaredByContract(t *testing.T) {
	f := newFixture(t)
	x := testutil.SeedMember(t, context.Background(), f.db, "alice", "X")
	y := testutil.SeedMember(t, context.Background(), f.db, "alice", "Y")
	tx := f.create(t, alice, x, types.TypePayout, "5", "0")
	if _, err := f.agg.UpdateTransaction(context.Background(), admin, domainagg.UpdateTransactionInput{
		TransactionID: tx.ID,
		MemberID:      &y.ID,
	}); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}

	contract := f.agg.Contract()
	if !contract.OwnsTx {
		t.Fatalf("ledger aggregate must own its write transaction")
	}
	for _, kind := range f.pub.kinds() {
		if !contract.Declares(kind) {
			t.Fatalf("published undeclared event %q", kind)
		}
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := testutil.SeedMember(t, ctx, f.db, "carol", "Dan")

	cases := []struct {
		name   string
		caller *auth.Caller
		in     domainagg.CreateTransactionInput
		want   domainagg.ErrorCode
	}{
		{"unknown type", admin, domainagg.CreateTransactionInput{MemberID: m.ID, Type: "Refund", Amount: dec("1")}, domainagg.CodeInvalidType},
		{"type checked before member", admin, domainagg.CreateTransactionInput{MemberID: uuid.New(), Type: "Refund", Amount: dec("1")}, domainagg.CodeInvalidType},
		{"negative amount", admin, domainagg.CreateTransactionInput{MemberID: m.ID, Type: "Payout", Amount: dec("-1")}, domainagg.CodeInvalidAmount},
		{"negative fee", admin, domainagg.CreateTransactionInput{MemberID: m.ID, Type: "Payout", Amount: dec("1"), Fee: dec("-0.5")}, domainagg.CodeInvalidAmount},
		{"missing member", admin, domainagg.CreateTransactionInput{MemberID: uuid.New(), Type: "Payout", Amount: dec("1")}, domainagg.CodeNotFound},
		{"other owner", alice, domainagg.CreateTransactionInput{MemberID: m.ID, Type: "Payout", Amount: dec("1")}, domainagg.CodeForbidden},
	}
	for _, tc := range cases {
		_, err := f.agg.CreateTransaction(ctx, tc.caller, tc.in)
		if !domainagg.IsCode(err, tc.want) {
			t.Fatalf("%s: want=%s got=%v", tc.name, tc.want, err)
		}
	}
	if kinds := f.pub.kinds(); len(kinds) != 0 {
		t.Fatalf("rejected creates must not publish, got=%v", kinds)
	}
	if got := f.member(t, m.ID); !got.Aggregates().IsZero() {
		t.Fatalf("rejected creates must not touch counters, got=%+v", got.Aggregates())
	}
}

func TestCreateZeroAmountIsAccepted(t *testing.T) {
	f := newFixture(t)
	m := testutil.SeedMember(t, context.Background(), f.db, "alice", "Bob")
	f.create(t, alice, m, types.TypeRunaway, "0", "0")
	if got := f.member(t, m.ID); !got.Aggregates().IsZero() {
		t.Fatalf("zero amount should leave counters at zero, got=%+v", got.Aggregates())
	}
}

func TestCreateDropsFeeOnNonChargeableTypes(t *testing.T) {
	f := newFixture(t)
	m := testutil.SeedMember(t, context.Background(), f.db, "alice", "Bob")
	tx := f.create(t, alice, m, types.TypeFrozen, "20", "3")
	if !tx.Fee.IsZero() {
		t.Fatalf("frozen fee: want=0 got=%s", tx.Fee)
	}
	got := f.member(t, m.ID)
	if !got.Frozen.Equal(dec("20")) || !got.Charges.IsZero() {
		t.Fatalf("want frozen=20 charges=0 got=%s/%s", got.Frozen, got.Charges)
	}
}

func TestCreateIdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := testutil.SeedMember(t, ctx, f.db, "alice", "Bob")
	in := domainagg.CreateTransactionInput{MemberID: m.ID, Type: "USDT Top Up", Amount: dec("10"), IdempotencyKey: "req-1"}

	first, err := f.agg.CreateTransaction(ctx, alice, in)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := f.agg.CreateTransaction(ctx, alice, in)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.Replayed || second.Transaction.ID != first.Transaction.ID {
		t.Fatalf("replay: want same transaction replayed got replayed=%v id=%s", second.Replayed, second.Transaction.ID)
	}
	if got := f.member(t, m.ID); !got.Received.Equal(dec("10")) {
		t.Fatalf("received: want=10 got=%s", got.Received)
	}
	if n := len(f.pub.kinds()); n != 2 {
		t.Fatalf("replay must not republish: events=%d", n)
	}
}

func TestUpdateAmountNeverDoubleApplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := testutil.SeedMember(t, ctx, f.db, "alice", "Bob")
	tx := f.create(t, alice, m, types.TypePayout, "30", "0")

	amount := dec("50")
	if _, err := f.agg.UpdateTransaction(ctx, admin, domainagg.UpdateTransactionInput{TransactionID: tx.ID, Amount: &amount}); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if got := f.member(t, m.ID); !got.PaidOut.Equal(dec("50")) {
		t.Fatalf("paidOut: want=50 got=%s", got.PaidOut)
	}
	f.assertLedgerConsistent(t)
}

func TestUpdateAmountDelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := testutil.SeedMember(t, ctx, f.db, "alice", "Bob")
	f.create(t, alice, m, types.TypeTopUp, "7", "0")
	tx := f.create(t, alice, m, types.TypeTopUp, "12.25", "0")
	before := f.member(t, m.ID).Received

	amount := dec("4.75")
	if _, err := f.agg.UpdateTransaction(ctx, admin, domainagg.UpdateTransactionInput{TransactionID: tx.ID, Amount: &amount}); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	after := f.member(t, m.ID).Received
	if delta := after.Sub(before); !delta.Equal(dec("-7.5")) {
		t.Fatalf("delta: want=-7.5 got=%s", delta)
	}
}

func TestUpdateMoveBetweenMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := testutil.SeedMember(t, ctx, f.db, "alice", "X")
	y := testutil.SeedMember(t, ctx, f.db, "carol", "Y")
	z := testutil.SeedMember(t, ctx, f.db, "carol", "Z")
	f.create(t, admin, z, types.TypeTopUp, "9", "1")
	tx := f.create(t, admin, x, types.TypePayout, "40", "2")
	zBefore := f.member(t, z.ID).Aggregates()
	f.pub.reset()

	res, err := f.agg.UpdateTransaction(ctx, admin, domainagg.UpdateTransactionInput{TransactionID: tx.ID, MemberID: &y.ID})
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if res.Transaction.OwnerName != "carol" || res.Transaction.MemberName != "Y" {
		t.Fatalf("attribution should follow the member: got %s/%s", res.Transaction.OwnerName, res.Transaction.MemberName)
	}
	if got := f.member(t, x.ID); !got.Aggregates().IsZero() {
		t.Fatalf("x should be empty after move, got=%+v", got.Aggregates())
	}
	if got := f.member(t, y.ID); !got.PaidOut.Equal(dec("40")) || !got.Charges.Equal(dec("2")) {
		t.Fatalf("y: want paidOut=40 charges=2 got=%s/%s", got.PaidOut, got.Charges)
	}
	if got := f.member(t, z.ID).Aggregates(); !got.Equal(zBefore) {
		t.Fatalf("unrelated member changed: before=%+v after=%+v", zBefore, got)
	}

	kinds := f.pub.kinds()
	if len(kinds) != 3 || kinds[0] != types.EventTransactionUpdated || kinds[1] != types.EventMemberUpdated || kinds[2] != types.EventMemberUpdated {
		t.Fatalf("events: want=[transaction.updated member.updated member.updated] got=%v", kinds)
	}
	if got := f.pub.events[1].Payload.(*types.Member); got.ID != x.ID {
		t.Fatalf("first member event should be the original member")
	}
	if got := f.pub.events[2].Payload.(*types.Member); got.ID != y.ID {
		t.Fatalf("second member event should be the target member")
	}
	f.assertLedgerConsistent(t)
}

func TestUpdateSameMemberPublishesOneMemberEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := testutil.SeedMember(t, ctx, f.db, "alice", "Bob")
	tx := f.create(t, alice, m, types.TypeTopUp, "5", "0")
	f.pub.reset()

	note := "fixed"
	if _, err := f.agg.UpdateTransaction(ctx, admin, domainagg.UpdateTransactionInput{TransactionID: tx.ID, MemberID: &m.ID, Note: &note}); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if kinds := f.pub.kinds(); len(kinds) != 2 {
		t.Fatalf("events: want 2 got=%v", kinds)
	}
}

func TestUpdateMoveRoundTripRestoresAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.SeedMember(t, ctx, f.db, "alice", "A")
	b := testutil.SeedMember(t, ctx, f.db, "alice", "B")
	f.create(t, alice, b, types.TypeFrozen, "3", "0")
	tx := f.create(t, alice, a, types.TypeFiatConvert, "25", "1.5")
	aStart, bStart := f.member(t, a.ID).Aggregates(), f.member(t, b.ID).Aggregates()

	for _, target := range []uuid.UUID{b.ID, a.ID} {
		target := target
		if _, err := f.agg.UpdateTransaction(ctx, admin, domainagg.UpdateTransactionInput{TransactionID: tx.ID, MemberID: &target}); err != nil {
			t.Fatalf("move to %s: %v", target, err)
		}
	}
	if got := f.member(t, a.ID).Aggregates(); !got.Equal(aStart) {
		t.Fatalf("a: want=%+v got=%+v", aStart, got)
	}
	if got := f.member(t, b.ID).Aggregates(); !got.Equal(bStart) {
		t.Fatalf("b: want=%+v got=%+v", bStart, got)
	}
}

func TestUpdateTypeChangeMovesCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := testutil.SeedMember(t, ctx, f.db, "alice", "Bob")
	tx := f.create(t, alice, m, types.TypePayout, "60", "4")

	frozen := string(types.TypeFrozen)
	res, err := f.agg.UpdateTransaction(ctx, admin, domainagg.UpdateTransactionInput{TransactionID: tx.ID, Type: &frozen})
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if !res.Transaction.Fee.IsZero() {
		t.Fatalf("fee should be dropped for Frozen, got=%s", res.Transaction.Fee)
	}
	want := types.Effect{Frozen: dec("60")}
	if got := f.member(t, m.ID).Aggregates(); !got.Equal(want) {
		t.Fatalf("want=%+v got=%+v", want, got)
	}
}

func TestUpdatePatchesOptionalFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := testutil.SeedMember(t, ctx, f.db, "alice", "Bob")
	res, err := f.agg.CreateTransaction(ctx, alice, domainagg.CreateTransactionInput{
		MemberID:    m.ID,
		Type:        string(types.TypePayout),
		Amount:      dec("10"),
		BonusRate:   func() *decimal.Decimal { v := dec("0.1"); return &v }(),
		BankDetails: func() *string { s := "IBAN 1"; return &s }(),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	occurred := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	up, err := f.agg.UpdateTransaction(ctx, admin, domainagg.UpdateTransactionInput{
		TransactionID: res.Transaction.ID,
		BonusRate:     ledger.Clear[decimal.Decimal](),
		CryptoAddress: ledger.Some("  TXYZ  "),
		OccurredAt:    &occurred,
	})
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	got := up.Transaction
	if got.BonusRate != nil {
		t.Fatalf("bonus rate should be cleared, got=%s", got.BonusRate)
	}
	if got.BankDetails == nil || *got.BankDetails != "IBAN 1" {
		t.Fatalf("bank details should be untouched, got=%v", got.BankDetails)
	}
	if got.CryptoAddress == nil || *got.CryptoAddress != "TXYZ" {
		t.Fatalf("crypto address: want=TXYZ got=%v", got.CryptoAddress)
	}
	if !got.OccurredAt.Equal(occurred) || !got.CreatedAt.Equal(res.Transaction.CreatedAt) {
		t.Fatalf("occurredAt should move, createdAt should not: %s / %s", got.OccurredAt, got.CreatedAt)
	}
}

func TestUpdateRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := testutil.SeedMember(t, ctx, f.db, "alice", "Bob")
	tx := f.create(t, alice, m, types.TypeTopUp, "10", "0")
	f.pub.reset()

	bad := "Refund"
	neg := dec("-3")
	ghost := uuid.New()
	cases := []struct {
		name   string
		caller *auth.Caller
		in     domainagg.UpdateTransactionInput
		want   domainagg.ErrorCode
	}{
		{"employee", alice, domainagg.UpdateTransactionInput{TransactionID: tx.ID, Amount: &neg}, domainagg.CodeForbidden},
		{"unknown type", admin, domainagg.UpdateTransactionInput{TransactionID: tx.ID, Type: &bad}, domainagg.CodeInvalidType},
		{"negative amount", admin, domainagg.UpdateTransactionInput{TransactionID: tx.ID, Amount: &neg}, domainagg.CodeInvalidAmount},
		{"missing transaction", admin, domainagg.UpdateTransactionInput{TransactionID: uuid.New()}, domainagg.CodeNotFound},
		{"missing target", admin, domainagg.UpdateTransactionInput{TransactionID: tx.ID, MemberID: &ghost}, domainagg.CodeNotFound},
	}
	for _, tc := range cases {
		_, err := f.agg.UpdateTransaction(ctx, tc.caller, tc.in)
		if !domainagg.IsCode(err, tc.want) {
			t.Fatalf("%s: want=%s got=%v", tc.name, tc.want, err)
		}
	}
	if kinds := f.pub.kinds(); len(kinds) != 0 {
		t.Fatalf("rejected updates must not publish, got=%v", kinds)
	}
	if got := f.member(t, m.ID); !got.Received.Equal(dec("10")) {
		t.Fatalf("received: want=10 got=%s", got.Received)
	}
}

// failingMembers fails the Nth Increment call.
type failingMembers struct {
	repos.MemberRepo
	mu     sync.Mutex
	calls  int
	failOn int
}

func (r *failingMembers) Increment(dbc dbctx.Context, id uuid.UUID, e types.Effect) error {
	r.mu.Lock()
	r.calls++
	n := r.calls
	r.mu.Unlock()
	if n == r.failOn {
		return errors.New("injected increment failure")
	}
	return r.MemberRepo.Increment(dbc, id, e)
}

func TestUpdatePartialFailureRollsBackAndIsReported(t *testing.T) {
	var wrapped *failingMembers
	f := newFixture(t, func(d *aggregates.LedgerAggregateDeps) {
		wrapped = &failingMembers{MemberRepo: d.Members}
		d.Members = wrapped
	})
	ctx := context.Background()
	x := testutil.SeedMember(t, ctx, f.db, "alice", "X")
	y := testutil.SeedMember(t, ctx, f.db, "alice", "Y")
	tx := f.create(t, alice, x, types.TypeTopUp, "30", "1")
	f.pub.reset()

	wrapped.mu.Lock()
	wrapped.failOn = wrapped.calls + 2
	wrapped.mu.Unlock()

	_, err := f.agg.UpdateTransaction(ctx, admin, domainagg.UpdateTransactionInput{TransactionID: tx.ID, MemberID: &y.ID})
	if !domainagg.IsCode(err, domainagg.CodePartialLedger) {
		t.Fatalf("want partial_ledger_failure got=%v", err)
	}
	var detail *domainagg.PartialLedgerError
	if !errors.As(err, &detail) || detail.TransactionID != tx.ID.String() {
		t.Fatalf("expected partial ledger detail for tx %s, got=%v", tx.ID, err)
	}
	if len(f.hooks.Partials) != 1 {
		t.Fatalf("partial hook: want=1 got=%d", len(f.hooks.Partials))
	}
	if kinds := f.pub.kinds(); len(kinds) != 0 {
		t.Fatalf("failed update must not publish, got=%v", kinds)
	}
	if got := f.member(t, x.ID); !got.Received.Equal(dec("30")) || !got.Charges.Equal(dec("1")) {
		t.Fatalf("x should be untouched after rollback: %+v", got.Aggregates())
	}
	if got := f.member(t, y.ID); !got.Aggregates().IsZero() {
		t.Fatalf("y should be untouched after rollback: %+v", got.Aggregates())
	}
	stored, _ := f.txns.GetByID(dbctx.New(ctx), tx.ID)
	if stored.MemberID != x.ID {
		t.Fatalf("stored transaction should still belong to x")
	}
}

func TestCommitFailureIsStorageFailureWithoutEvents(t *testing.T) {
	var runner *aggtestutil.InjectedTxRunner
	f := newFixture(t, func(d *aggregates.LedgerAggregateDeps) {
		runner = &aggtestutil.InjectedTxRunner{DB: d.Base.DB}
		d.Base.Runner = runner
	})
	ctx := context.Background()
	m := testutil.SeedMember(t, ctx, f.db, "alice", "Bob")
	runner.FailCommit = errors.New("commit: connection lost")

	_, err := f.agg.CreateTransaction(ctx, alice, domainagg.CreateTransactionInput{MemberID: m.ID, Type: "Payout", Amount: dec("5")})
	if !domainagg.IsCode(err, domainagg.CodeStorageFailure) {
		t.Fatalf("want storage_failure got=%v", err)
	}
	if kinds := f.pub.kinds(); len(kinds) != 0 {
		t.Fatalf("uncommitted write must not publish, got=%v", kinds)
	}
	if got := f.member(t, m.ID); !got.Aggregates().IsZero() {
		t.Fatalf("counters should roll back, got=%+v", got.Aggregates())
	}
}

func TestRandomWorkloadKeepsCountersEqualToTransactionSums(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	allTypes := ledger.TransactionTypes()

	var members []*types.Member
	for i := 0; i < 4; i++ {
		members = append(members, testutil.SeedMember(t, ctx, f.db, "alice", fmt.Sprintf("M%d", i)))
	}
	var txIDs []uuid.UUID
	for i := 0; i < 40; i++ {
		if len(txIDs) == 0 || rng.Intn(3) > 0 {
			m := members[rng.Intn(len(members))]
			typ := allTypes[rng.Intn(len(allTypes))]
			tx := f.create(t, alice, m, typ, fmt.Sprintf("%d.%02d", rng.Intn(500), rng.Intn(100)), fmt.Sprintf("%d", rng.Intn(3)))
			txIDs = append(txIDs, tx.ID)
			continue
		}
		in := domainagg.UpdateTransactionInput{TransactionID: txIDs[rng.Intn(len(txIDs))]}
		target := members[rng.Intn(len(members))].ID
		in.MemberID = &target
		typ := string(allTypes[rng.Intn(len(allTypes))])
		in.Type = &typ
		amount := decimal.NewFromInt(int64(rng.Intn(300)))
		in.Amount = &amount
		fee := decimal.NewFromInt(int64(rng.Intn(4)))
		in.Fee = &fee
		if _, err := f.agg.UpdateTransaction(ctx, admin, in); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	f.assertLedgerConsistent(t)
}

func TestConcurrentUpdatesOfSameTransactionSerialize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := testutil.SeedMember(t, ctx, f.db, "alice", "Bob")
	other := testutil.SeedMember(t, ctx, f.db, "alice", "Ann")
	tx := f.create(t, alice, m, types.TypePayout, "30", "0")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := decimal.NewFromInt(int64(10 + i))
			in := domainagg.UpdateTransactionInput{TransactionID: tx.ID, Amount: &amount}
			if i%2 == 0 {
				in.MemberID = &other.ID
			} else {
				in.MemberID = &m.ID
			}
			if _, err := f.agg.UpdateTransaction(ctx, admin, in); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent update: %v", err)
	}

	stored, err := f.txns.GetByID(dbctx.New(ctx), tx.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	total := f.member(t, m.ID).PaidOut.Add(f.member(t, other.ID).PaidOut)
	if !total.Equal(stored.Amount) {
		t.Fatalf("paidOut across members: want=%s (final amount) got=%s", stored.Amount, total)
	}
	f.assertLedgerConsistent(t)
}

func TestConcurrentCreatesAccumulate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := testutil.SeedMember(t, ctx, f.db, "alice", "Bob")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.agg.CreateTransaction(ctx, alice, domainagg.CreateTransactionInput{MemberID: m.ID, Type: "USDT Top Up", Amount: dec("1.5"), Fee: dec("0.1")})
			if err != nil {
				t.Errorf("create: %v", err)
			}
		}()
	}
	wg.Wait()
	got := f.member(t, m.ID)
	if !got.Received.Equal(dec("30")) || !got.Charges.Equal(dec("2")) {
		t.Fatalf("want received=30 charges=2 got=%s/%s", got.Received, got.Charges)
	}
}
