package aggregates

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/papaya-ledger/internal/data/repos"
	types "github.com/yungbote/papaya-ledger/internal/domain"
	domainagg "github.com/yungbote/papaya-ledger/internal/domain/aggregates"
	"github.com/yungbote/papaya-ledger/internal/domain/auth"
	"github.com/yungbote/papaya-ledger/internal/platform/dbctx"
)

// Publisher receives committed ledger changes. Implementations must not block.
type Publisher interface {
	Publish(ctx context.Context, kind string, payload any)
}

type LedgerAggregateDeps struct {
	Base BaseDeps

	Members      repos.MemberRepo
	Transactions repos.TransactionRepo
	Publisher    Publisher

	Now func() time.Time
}

type ledgerAggregate struct {
	deps LedgerAggregateDeps
}

func NewLedgerAggregate(deps LedgerAggregateDeps) domainagg.LedgerAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &ledgerAggregate{deps: deps}
}

func (a *ledgerAggregate) Contract() domainagg.Contract {
	return domainagg.LedgerAggregateContract
}

func (a *ledgerAggregate) CreateTransaction(ctx context.Context, caller *auth.Caller, in domainagg.CreateTransactionInput) (domainagg.CreateTransactionResult, error) {
	const op = "Ledger.CreateTransaction"
	var out domainagg.CreateTransactionResult

	typ, ok := types.ParseTransactionType(in.Type)
	if !ok {
		return out, domainagg.NewError(domainagg.CodeInvalidType, op, unknownTypeMessage(in.Type), nil)
	}
	if in.Amount.IsNegative() {
		return out, domainagg.NewError(domainagg.CodeInvalidAmount, op, "amount must be >= 0", nil)
	}
	if in.Fee.IsNegative() {
		return out, domainagg.NewError(domainagg.CodeInvalidAmount, op, "fee must be >= 0", nil)
	}
	if in.MemberID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing member_id", nil)
	}
	if caller == nil {
		return out, domainagg.NewError(domainagg.CodeForbidden, op, "missing caller", nil)
	}
	if a.deps.Members == nil || a.deps.Transactions == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "ledger aggregate repos not configured", nil)
	}

	now := a.deps.Now()
	key := strings.TrimSpace(in.IdempotencyKey)
	row := &types.Transaction{
		Type:          typ,
		Amount:        in.Amount,
		Fee:           chargeableFee(typ, in.Fee),
		BonusRate:     copyDecimal(in.BonusRate),
		Note:          strings.TrimSpace(in.Note),
		CryptoAddress: blankToNil(in.CryptoAddress),
		BankDetails:   blankToNil(in.BankDetails),
		OccurredAt:    now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.OccurredAt != nil && !in.OccurredAt.IsZero() {
		row.OccurredAt = in.OccurredAt.UTC()
	}
	if key != "" {
		row.IdempotencyKey = &key
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = domainagg.CreateTransactionResult{}
		if key != "" {
			replay, err := a.replay(dbc, op, caller, key)
			if err != nil || replay != nil {
				if replay != nil {
					out = *replay
				}
				return err
			}
		}

		member, err := a.deps.Members.GetByID(dbc, in.MemberID)
		if err != nil {
			return err
		}
		if member == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("member not found: %s", in.MemberID), nil)
		}
		if !caller.CanAccessOwner(member.Owner) {
			return domainagg.NewError(domainagg.CodeForbidden, op, "member belongs to another owner", nil)
		}

		rec := row.Clone()
		rec.ID = uuid.New()
		rec.AttributeTo(member)
		if err := a.deps.Members.Increment(dbc, member.ID, types.EffectOfTransaction(rec, 1)); err != nil {
			return err
		}
		created, err := a.deps.Transactions.Create(dbc, rec)
		if err != nil {
			return err
		}
		fresh, err := a.deps.Members.GetByID(dbc, member.ID)
		if err != nil {
			return err
		}
		out = domainagg.CreateTransactionResult{Transaction: created, Member: fresh}
		return nil
	})

	// A concurrent request with the same key won the insert; hand back its record.
	if key != "" && domainagg.IsCode(err, domainagg.CodeConflict) {
		replay, rerr := a.replay(dbctx.New(ctx), op, caller, key)
		if rerr == nil && replay != nil {
			return *replay, nil
		}
	}
	if err != nil {
		return domainagg.CreateTransactionResult{}, err
	}

	if !out.Replayed {
		a.publish(ctx, types.EventTransactionCreated, out.Transaction)
		a.publish(ctx, types.EventMemberUpdated, out.Member)
	}
	return out, nil
}

func (a *ledgerAggregate) replay(dbc dbctx.Context, op string, caller *auth.Caller, key string) (*domainagg.CreateTransactionResult, error) {
	existing, err := a.deps.Transactions.GetByIdempotencyKey(dbc, key)
	if err != nil || existing == nil {
		return nil, err
	}
	if !caller.CanAccessOwner(existing.OwnerName) {
		return nil, domainagg.NewError(domainagg.CodeForbidden, op, "idempotency key belongs to another owner", nil)
	}
	member, err := a.deps.Members.GetByID(dbc, existing.MemberID)
	if err != nil {
		return nil, err
	}
	return &domainagg.CreateTransactionResult{Transaction: existing, Member: member, Replayed: true}, nil
}

// ledgerStep is one counter increment inside an update.
type ledgerStep struct {
	stage    string
	memberID uuid.UUID
	effect   types.Effect
}

func (a *ledgerAggregate) UpdateTransaction(ctx context.Context, caller *auth.Caller, in domainagg.UpdateTransactionInput) (domainagg.UpdateTransactionResult, error) {
	const op = "Ledger.UpdateTransaction"
	var out domainagg.UpdateTransactionResult

	if !caller.Privileged() {
		return out, domainagg.NewError(domainagg.CodeForbidden, op, "only admins may edit transactions", nil)
	}
	if in.TransactionID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing transaction id", nil)
	}
	var newType *types.TransactionType
	if in.Type != nil {
		typ, ok := types.ParseTransactionType(*in.Type)
		if !ok {
			return out, domainagg.NewError(domainagg.CodeInvalidType, op, unknownTypeMessage(*in.Type), nil)
		}
		newType = &typ
	}
	if in.Amount != nil && in.Amount.IsNegative() {
		return out, domainagg.NewError(domainagg.CodeInvalidAmount, op, "amount must be >= 0", nil)
	}
	if in.Fee != nil && in.Fee.IsNegative() {
		return out, domainagg.NewError(domainagg.CodeInvalidAmount, op, "fee must be >= 0", nil)
	}
	if in.MemberID != nil && *in.MemberID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "member_id cannot be empty", nil)
	}
	if a.deps.Members == nil || a.deps.Transactions == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "ledger aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = domainagg.UpdateTransactionResult{}

		before, err := a.deps.Transactions.LockByID(dbc, in.TransactionID)
		if err != nil {
			return err
		}
		if before == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("transaction not found: %s", in.TransactionID), nil)
		}
		original, err := a.deps.Members.GetByID(dbc, before.MemberID)
		if err != nil {
			return err
		}
		if original == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("original member not found: %s", before.MemberID), nil)
		}
		target := original
		if in.MemberID != nil && *in.MemberID != original.ID {
			target, err = a.deps.Members.GetByID(dbc, *in.MemberID)
			if err != nil {
				return err
			}
			if target == nil {
				return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("member not found: %s", *in.MemberID), nil)
			}
		}

		after := mergeTransaction(before, in, newType, target, a.deps.Now())
		steps := orderSteps([]ledgerStep{
			{stage: "revert", memberID: original.ID, effect: types.EffectOfTransaction(before, -1)},
			{stage: "apply", memberID: target.ID, effect: types.EffectOfTransaction(after, 1)},
		})
		for i, s := range steps {
			if err := a.deps.Members.Increment(dbc, s.memberID, s.effect); err != nil {
				if i == 0 {
					return err
				}
				return a.partial(op, before, original, target, s.stage, err)
			}
		}
		if err := a.deps.Transactions.Replace(dbc, after); err != nil {
			return a.partial(op, before, original, target, "record", err)
		}

		out.Before = before
		out.Transaction = after
		if out.OriginalMember, err = a.deps.Members.GetByID(dbc, original.ID); err != nil {
			return err
		}
		if target.ID != original.ID {
			if out.TargetMember, err = a.deps.Members.GetByID(dbc, target.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domainagg.UpdateTransactionResult{}, err
	}

	a.publish(ctx, types.EventTransactionUpdated, out.Transaction)
	a.publish(ctx, types.EventMemberUpdated, out.OriginalMember)
	if out.TargetMember != nil {
		a.publish(ctx, types.EventMemberUpdated, out.TargetMember)
	}
	return out, nil
}

// partial logs and wraps a failure that happened after the first counter step.
// The caller's transaction is rolled back by returning the error.
func (a *ledgerAggregate) partial(op string, before *types.Transaction, original, target *types.Member, stage string, cause error) error {
	detail := &domainagg.PartialLedgerError{
		Op:             op,
		TransactionID:  before.ID.String(),
		RevertedMember: original.ID.String(),
		TargetMember:   target.ID.String(),
		Stage:          stage,
		Cause:          cause,
	}
	if log := a.deps.Base.Log; log != nil {
		log.Error("partial ledger failure; rolling back",
			"transaction_id", detail.TransactionID,
			"original_member_id", detail.RevertedMember,
			"target_member_id", detail.TargetMember,
			"stage", stage,
			"error", cause,
		)
	}
	return domainagg.NewPartialLedgerError(detail)
}

func (a *ledgerAggregate) publish(ctx context.Context, kind string, payload any) {
	if a.deps.Publisher == nil {
		return
	}
	a.deps.Publisher.Publish(ctx, kind, payload)
}

// mergeTransaction applies the edit on a copy of before, re-attributed to target.
func mergeTransaction(before *types.Transaction, in domainagg.UpdateTransactionInput, newType *types.TransactionType, target *types.Member, now time.Time) *types.Transaction {
	after := before.Clone()
	after.AttributeTo(target)
	if newType != nil {
		after.Type = *newType
	}
	if in.Amount != nil {
		after.Amount = *in.Amount
	}
	if in.Fee != nil {
		after.Fee = *in.Fee
	}
	after.Fee = chargeableFee(after.Type, after.Fee)
	if in.Note != nil {
		after.Note = strings.TrimSpace(*in.Note)
	}
	if in.OccurredAt != nil && !in.OccurredAt.IsZero() {
		after.OccurredAt = in.OccurredAt.UTC()
	}
	after.BonusRate = in.BonusRate.Apply(after.BonusRate)
	after.CryptoAddress = blankToNil(in.CryptoAddress.Apply(after.CryptoAddress))
	after.BankDetails = blankToNil(in.BankDetails.Apply(after.BankDetails))
	after.UpdatedAt = now
	return after
}

// orderSteps sorts increments by member id so concurrent moves lock rows in the same order.
// Steps on the same member keep their revert-then-apply order.
func orderSteps(steps []ledgerStep) []ledgerStep {
	sort.SliceStable(steps, func(i, j int) bool {
		return bytes.Compare(steps[i].memberID[:], steps[j].memberID[:]) < 0
	})
	return steps
}

func chargeableFee(t types.TransactionType, fee decimal.Decimal) decimal.Decimal {
	if !t.Chargeable() {
		return decimal.Zero
	}
	return fee
}

func copyDecimal(v *decimal.Decimal) *decimal.Decimal {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func unknownTypeMessage(raw string) string {
	all := types.TransactionTypes()
	labels := make([]string, len(all))
	for i, t := range all {
		labels[i] = string(t)
	}
	return fmt.Sprintf("unknown transaction type %q (want one of: %s)", raw, strings.Join(labels, ", "))
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
