package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/yungbote/papaya-ledger/internal/domain"
)

func SeedMember(tb testing.TB, ctx context.Context, db *gorm.DB, owner, name string) *types.Member {
	tb.Helper()
	now := time.Now().UTC()
	m := &types.Member{
		ID:        uuid.New(),
		Owner:     owner,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed member: %v", err)
	}
	return m
}

func SeedTransaction(tb testing.TB, ctx context.Context, db *gorm.DB, m *types.Member, typ types.TransactionType, amount string) *types.Transaction {
	tb.Helper()
	now := time.Now().UTC()
	tx := &types.Transaction{
		ID:         uuid.New(),
		Type:       typ,
		Amount:     decimal.RequireFromString(amount),
		OccurredAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	tx.AttributeTo(m)
	if err := db.WithContext(ctx).Create(tx).Error; err != nil {
		tb.Fatalf("seed transaction: %v", err)
	}
	return tx
}

// ReloadMember reads m back from the database.
func ReloadMember(tb testing.TB, ctx context.Context, db *gorm.DB, id uuid.UUID) *types.Member {
	tb.Helper()
	var out types.Member
	if err := db.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		tb.Fatalf("reload member %s: %v", id, err)
	}
	return &out
}

func Dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
