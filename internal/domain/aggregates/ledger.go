package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/papaya-ledger/internal/domain/auth"
	"github.com/yungbote/papaya-ledger/internal/domain/ledger"
)

var LedgerAggregateContract = Contract{
	Name:   "Ledger.TransactionAggregate",
	OwnsTx: true,
	Events: []string{ledger.EventTransactionCreated, ledger.EventTransactionUpdated, ledger.EventMemberUpdated},
	Notes:  "Owns transaction records and the member counters they contribute to.",
}

// LedgerAggregate owns the transaction to member-counter invariant.
//
// Write failures return *aggregates.Error with codes:
// CodeInvalidType, CodeInvalidAmount, CodeValidation, CodeNotFound, CodeForbidden,
// CodeConflict, CodeRetryable, CodeStorageFailure, CodePartialLedger.
type LedgerAggregate interface {
	Aggregate

	// CreateTransaction records a transaction and applies its effect to the owning member.
	CreateTransaction(ctx context.Context, caller *auth.Caller, in CreateTransactionInput) (CreateTransactionResult, error)

	// UpdateTransaction reverts the stored effect and applies the edited one, possibly on another member.
	UpdateTransaction(ctx context.Context, caller *auth.Caller, in UpdateTransactionInput) (UpdateTransactionResult, error)
}

type CreateTransactionInput struct {
	MemberID      uuid.UUID
	Type          string
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	Note          string
	BonusRate     *decimal.Decimal
	CryptoAddress *string
	BankDetails   *string
	OccurredAt    *time.Time

	// Replays with the same key return the first result without touching counters.
	IdempotencyKey string
}

type CreateTransactionResult struct {
	Transaction *ledger.Transaction
	Member      *ledger.Member
	Replayed    bool
}

type UpdateTransactionInput struct {
	TransactionID uuid.UUID

	MemberID      *uuid.UUID
	Type          *string
	Amount        *decimal.Decimal
	Fee           *decimal.Decimal
	Note          *string
	OccurredAt    *time.Time
	BonusRate     ledger.Optional[decimal.Decimal]
	CryptoAddress ledger.Optional[string]
	BankDetails   ledger.Optional[string]
}

type UpdateTransactionResult struct {
	Before         *ledger.Transaction
	Transaction    *ledger.Transaction
	OriginalMember *ledger.Member
	// Nil when the transaction stayed with its member.
	TargetMember *ledger.Member
}
