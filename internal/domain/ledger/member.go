package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Member struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Owner  string `gorm:"column:owner;not null;index" json:"owner"`
	Name   string `gorm:"column:name;not null" json:"name"`
	WorkID string `gorm:"column:work_id;not null;default:''" json:"workId"`
	Group  string `gorm:"column:group_name;not null;default:''" json:"group"`

	Opening           decimal.Decimal  `gorm:"column:opening;type:numeric(20,4);not null" json:"opening"`
	BonusRateOverride *decimal.Decimal `gorm:"column:bonus_rate_override;type:numeric(10,6)" json:"bonusRateOverride"`

	// Aggregates. Only ever written through an Effect increment.
	Received decimal.Decimal `gorm:"column:received;type:numeric(20,4);not null" json:"received"`
	PaidOut  decimal.Decimal `gorm:"column:paid_out;type:numeric(20,4);not null" json:"paidOut"`
	Frozen   decimal.Decimal `gorm:"column:frozen;type:numeric(20,4);not null" json:"frozen"`
	Runaway  decimal.Decimal `gorm:"column:runaway;type:numeric(20,4);not null" json:"runaway"`
	Charges  decimal.Decimal `gorm:"column:charges;type:numeric(20,4);not null" json:"charges"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (Member) TableName() string { return "ledger_member" }

// Aggregates returns the five counters as an Effect.
func (m *Member) Aggregates() Effect {
	if m == nil {
		return Effect{}
	}
	return Effect{
		Received: m.Received,
		PaidOut:  m.PaidOut,
		Frozen:   m.Frozen,
		Runaway:  m.Runaway,
		Charges:  m.Charges,
	}
}

type MemberFilter struct {
	Owner string
	Limit int
}
