package services

import (
	"context"

	"github.com/yungbote/papaya-ledger/internal/data/repos"
	types "github.com/yungbote/papaya-ledger/internal/domain"
	domainagg "github.com/yungbote/papaya-ledger/internal/domain/aggregates"
	"github.com/yungbote/papaya-ledger/internal/domain/auth"
	"github.com/yungbote/papaya-ledger/internal/platform/dbctx"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
)

type TransactionService interface {
	List(ctx context.Context, caller *auth.Caller, filter types.TransactionFilter) ([]*types.Transaction, error)
	Create(ctx context.Context, caller *auth.Caller, in domainagg.CreateTransactionInput) (domainagg.CreateTransactionResult, error)
	Update(ctx context.Context, caller *auth.Caller, in domainagg.UpdateTransactionInput) (domainagg.UpdateTransactionResult, error)
}

type transactionService struct {
	log    *logger.Logger
	txns   repos.TransactionRepo
	ledger domainagg.LedgerAggregate
}

func NewTransactionService(log *logger.Logger, txns repos.TransactionRepo, ledger domainagg.LedgerAggregate) TransactionService {
	return &transactionService{
		log:    log.With("service", "TransactionService"),
		txns:   txns,
		ledger: ledger,
	}
}

// List scopes non-admin callers to their own transactions regardless of the requested owner.
func (s *transactionService) List(ctx context.Context, caller *auth.Caller, filter types.TransactionFilter) ([]*types.Transaction, error) {
	const op = "TransactionService.List"
	if caller == nil {
		return nil, domainagg.NewError(domainagg.CodeForbidden, op, "missing caller", nil)
	}
	if !caller.Privileged() {
		filter.Owner = caller.Name
	}
	if filter.Type != "" {
		if _, ok := types.ParseTransactionType(string(filter.Type)); !ok {
			filter.Type = ""
		}
	}
	rows, err := s.txns.List(dbctx.New(ctx), filter)
	if err != nil {
		s.log.Warn("list transactions failed", "error", err)
		return nil, mapStorage(op, err)
	}
	return rows, nil
}

func (s *transactionService) Create(ctx context.Context, caller *auth.Caller, in domainagg.CreateTransactionInput) (domainagg.CreateTransactionResult, error) {
	res, err := s.ledger.CreateTransaction(ctx, caller, in)
	if err != nil {
		return res, err
	}
	if res.Replayed {
		s.log.Info("idempotent replay", "transaction_id", res.Transaction.ID, "caller_id", caller.ID)
	} else {
		s.log.Debug("transaction created", "transaction_id", res.Transaction.ID, "member_id", res.Transaction.MemberID, "type", res.Transaction.Type)
	}
	return res, nil
}

func (s *transactionService) Update(ctx context.Context, caller *auth.Caller, in domainagg.UpdateTransactionInput) (domainagg.UpdateTransactionResult, error) {
	res, err := s.ledger.UpdateTransaction(ctx, caller, in)
	if err != nil {
		return res, err
	}
	s.log.Debug("transaction updated",
		"transaction_id", res.Transaction.ID,
		"from_member_id", res.Before.MemberID,
		"to_member_id", res.Transaction.MemberID,
	)
	return res, nil
}
