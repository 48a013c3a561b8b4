package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the closed set of ledger categories. Values match the stored labels.
type TransactionType string

const (
	TypeTopUp       TransactionType = "USDT Top Up"
	TypeFiatConvert TransactionType = "Fiat Convert"
	TypePayout      TransactionType = "Payout"
	TypeFrozen      TransactionType = "Frozen"
	TypeRunaway     TransactionType = "Runaway"
)

var transactionTypes = []TransactionType{TypeTopUp, TypeFiatConvert, TypePayout, TypeFrozen, TypeRunaway}

// TransactionTypes returns the enum in display order.
func TransactionTypes() []TransactionType {
	out := make([]TransactionType, len(transactionTypes))
	copy(out, transactionTypes)
	return out
}

// ParseTransactionType accepts only exact labels.
func ParseTransactionType(raw string) (TransactionType, bool) {
	raw = strings.TrimSpace(raw)
	for _, t := range transactionTypes {
		if string(t) == raw {
			return t, true
		}
	}
	return "", false
}

// Chargeable reports whether fees on this type accrue to the member's charges.
func (t TransactionType) Chargeable() bool {
	return t == TypeTopUp || t == TypeFiatConvert || t == TypePayout
}

type Transaction struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	MemberID   uuid.UUID `gorm:"type:uuid;not null;index" json:"memberId"`
	OwnerName  string    `gorm:"column:owner_name;not null;index" json:"owner"`
	MemberName string    `gorm:"column:member_name;not null" json:"member"`
	GroupName  string    `gorm:"column:group_name;not null;default:''" json:"group"`

	Type   TransactionType `gorm:"column:type;not null;index" json:"type"`
	Amount decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"amount"`
	Fee    decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"fee"`

	// Nil falls back to the member override, then the configured rate.
	BonusRate *decimal.Decimal `gorm:"column:bonus_rate;type:numeric(10,6)" json:"bonusRate"`

	Note          string  `gorm:"column:note;not null;default:''" json:"note"`
	CryptoAddress *string `gorm:"column:crypto_address" json:"cryptoAddress"`
	BankDetails   *string `gorm:"column:bank_details" json:"bankDetails"`

	IdempotencyKey *string `gorm:"column:idempotency_key;uniqueIndex" json:"-"`

	OccurredAt time.Time `gorm:"column:occurred_at;not null;index" json:"occurredAt"`
	CreatedAt  time.Time `gorm:"not null;index" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"not null" json:"updatedAt"`
}

func (Transaction) TableName() string { return "ledger_transaction" }

// Clone returns a copy with no pointer fields shared with t.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	out := *t
	if t.BonusRate != nil {
		v := *t.BonusRate
		out.BonusRate = &v
	}
	if t.CryptoAddress != nil {
		v := *t.CryptoAddress
		out.CryptoAddress = &v
	}
	if t.BankDetails != nil {
		v := *t.BankDetails
		out.BankDetails = &v
	}
	if t.IdempotencyKey != nil {
		v := *t.IdempotencyKey
		out.IdempotencyKey = &v
	}
	return &out
}

// AttributeTo copies the denormalised member identity onto the transaction.
func (t *Transaction) AttributeTo(m *Member) {
	if t == nil || m == nil {
		return
	}
	t.MemberID = m.ID
	t.OwnerName = m.Owner
	t.MemberName = m.Name
	t.GroupName = m.Group
}

// TransactionFilter drives TransactionLog listing. Empty fields do not filter.
type TransactionFilter struct {
	Query  string
	Type   TransactionType
	Owner  string
	Member string
	From   *time.Time
	To     *time.Time

	OccurredFrom *time.Time
	OccurredTo   *time.Time
	// ByOccurred sorts newest occurredAt first instead of newest createdAt.
	ByOccurred bool

	Limit int
}
