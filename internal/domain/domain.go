package domain

import (
	"github.com/yungbote/papaya-ledger/internal/domain/auth"
	"github.com/yungbote/papaya-ledger/internal/domain/ledger"
)

type (
	Member            = ledger.Member
	MemberFilter      = ledger.MemberFilter
	Transaction       = ledger.Transaction
	TransactionType   = ledger.TransactionType
	TransactionFilter = ledger.TransactionFilter
	Effect            = ledger.Effect
	SalaryConfig      = ledger.SalaryConfig

	Caller = auth.Caller
)

const (
	TypeTopUp       = ledger.TypeTopUp
	TypeFiatConvert = ledger.TypeFiatConvert
	TypePayout      = ledger.TypePayout
	TypeFrozen      = ledger.TypeFrozen
	TypeRunaway     = ledger.TypeRunaway
)

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{
		&Member{},
		&Transaction{},
		&SalaryConfig{},
	}
}

var (
	NormalizeCurrency    = ledger.NormalizeCurrency
	DefaultSalaryConfig  = ledger.DefaultSalaryConfig
	ParseTransactionType = ledger.ParseTransactionType
	TransactionTypes     = ledger.TransactionTypes
	EffectOf             = ledger.EffectOf
	EffectOfTransaction  = ledger.EffectOfTransaction
)

const (
	EventTransactionCreated = ledger.EventTransactionCreated
	EventTransactionUpdated = ledger.EventTransactionUpdated
	EventMemberUpdated      = ledger.EventMemberUpdated
	EventConfigUpdated      = ledger.EventConfigUpdated
)
