package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var allowedCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "PKR": true, "INR": true, "AED": true, "SAR": true,
}

// NormalizeCurrency upper-cases code and falls back to USD for anything unsupported.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if allowedCurrencies[code] {
		return code
	}
	return "USD"
}

// SalaryConfig is a single-row table of bonus rules.
type SalaryConfig struct {
	ID           int             `gorm:"primaryKey" json:"-"`
	CurrencyCode string          `gorm:"column:currency_code;not null" json:"currencyCode"`
	BonusRate    decimal.Decimal `gorm:"column:bonus_rate;type:numeric(10,6);not null" json:"bonusRate"`
	FixedPerTask decimal.Decimal `gorm:"column:fixed_per_task;type:numeric(20,4);not null" json:"fixedPerTask"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updatedAt"`
}

func (SalaryConfig) TableName() string { return "salary_config" }

func DefaultSalaryConfig() SalaryConfig {
	return SalaryConfig{
		ID:           1,
		CurrencyCode: "USD",
		BonusRate:    decimal.RequireFromString("0.04"),
		FixedPerTask: decimal.NewFromInt(1),
	}
}
