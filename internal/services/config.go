package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/yungbote/papaya-ledger/internal/data/aggregates"
	"github.com/yungbote/papaya-ledger/internal/data/repos"
	types "github.com/yungbote/papaya-ledger/internal/domain"
	domainagg "github.com/yungbote/papaya-ledger/internal/domain/aggregates"
	"github.com/yungbote/papaya-ledger/internal/domain/auth"
	"github.com/yungbote/papaya-ledger/internal/platform/dbctx"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
)

// ConfigPatch leaves nil fields unchanged. CurrencyCode is always normalised.
type ConfigPatch struct {
	CurrencyCode string
	BonusRate    *decimal.Decimal
	FixedPerTask *decimal.Decimal
}

type ConfigService interface {
	Get(ctx context.Context) (*types.SalaryConfig, error)
	Save(ctx context.Context, caller *auth.Caller, patch ConfigPatch) (*types.SalaryConfig, error)
}

type configService struct {
	log  *logger.Logger
	repo repos.SalaryConfigRepo
	pub  aggregates.Publisher
}

func NewConfigService(log *logger.Logger, repo repos.SalaryConfigRepo, pub aggregates.Publisher) ConfigService {
	return &configService{
		log:  log.With("service", "ConfigService"),
		repo: repo,
		pub:  pub,
	}
}

func (s *configService) Get(ctx context.Context) (*types.SalaryConfig, error) {
	cfg, err := s.repo.Get(dbctx.New(ctx))
	if err != nil {
		return nil, mapStorage("ConfigService.Get", err)
	}
	return cfg, nil
}

func (s *configService) Save(ctx context.Context, caller *auth.Caller, patch ConfigPatch) (*types.SalaryConfig, error) {
	const op = "ConfigService.Save"
	if !caller.Privileged() {
		return nil, domainagg.NewError(domainagg.CodeForbidden, op, "admin only", nil)
	}
	if patch.BonusRate != nil && patch.BonusRate.IsNegative() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "bonusRate must be >= 0", nil)
	}
	if patch.FixedPerTask != nil && patch.FixedPerTask.IsNegative() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "fixedPerTask must be >= 0", nil)
	}

	dbc := dbctx.New(ctx)
	cur, err := s.repo.Get(dbc)
	if err != nil {
		return nil, mapStorage(op, err)
	}
	next := *cur
	next.CurrencyCode = types.NormalizeCurrency(patch.CurrencyCode)
	if patch.BonusRate != nil {
		next.BonusRate = *patch.BonusRate
	}
	if patch.FixedPerTask != nil {
		next.FixedPerTask = *patch.FixedPerTask
	}
	saved, err := s.repo.Save(dbc, &next)
	if err != nil {
		return nil, mapStorage(op, err)
	}
	s.log.Info("salary config updated", "currency", saved.CurrencyCode, "caller_id", caller.ID)
	if s.pub != nil {
		s.pub.Publish(ctx, types.EventConfigUpdated, saved)
	}
	return saved, nil
}
