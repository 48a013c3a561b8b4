package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yungbote/papaya-ledger/internal/data/repos"
	types "github.com/yungbote/papaya-ledger/internal/domain"
	domainagg "github.com/yungbote/papaya-ledger/internal/domain/aggregates"
	"github.com/yungbote/papaya-ledger/internal/domain/auth"
	"github.com/yungbote/papaya-ledger/internal/platform/dbctx"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
	"github.com/yungbote/papaya-ledger/internal/salary"
)

type SalaryReport struct {
	Day      string             `json:"day"`
	Currency string             `json:"currencyCode"`
	Rows     []salary.Row       `json:"rows"`
	Config   types.SalaryConfig `json:"config"`
}

type SalaryService interface {
	Today(ctx context.Context, caller *auth.Caller) (*SalaryReport, error)
	ForDay(ctx context.Context, caller *auth.Caller, day string) (*SalaryReport, error)
	// Range lists the caller's transactions whose occurredAt lies in [from, to], newest first.
	Range(ctx context.Context, caller *auth.Caller, from, to string) ([]*types.Transaction, error)
}

type salaryService struct {
	log     *logger.Logger
	txns    repos.TransactionRepo
	members repos.MemberRepo
	config  repos.SalaryConfigRepo
	loc     *time.Location
	now     func() time.Time
}

func NewSalaryService(log *logger.Logger, txns repos.TransactionRepo, members repos.MemberRepo, config repos.SalaryConfigRepo, loc *time.Location) SalaryService {
	if loc == nil {
		loc = time.UTC
	}
	return &salaryService{
		log:     log.With("service", "SalaryService"),
		txns:    txns,
		members: members,
		config:  config,
		loc:     loc,
		now:     time.Now,
	}
}

func (s *salaryService) Today(ctx context.Context, caller *auth.Caller) (*SalaryReport, error) {
	return s.build(ctx, caller, s.now())
}

// ForDay accepts YYYY-MM-DD in the report location.
func (s *salaryService) ForDay(ctx context.Context, caller *auth.Caller, day string) (*SalaryReport, error) {
	const op = "SalaryService.ForDay"
	day = strings.TrimSpace(day)
	if day == "" {
		return s.Today(ctx, caller)
	}
	t, err := time.ParseInLocation(salary.DayLayout, day, s.loc)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "day must be YYYY-MM-DD", err)
	}
	return s.build(ctx, caller, t)
}

func (s *salaryService) build(ctx context.Context, caller *auth.Caller, day time.Time) (*SalaryReport, error) {
	const op = "SalaryService.Build"
	if caller == nil {
		return nil, domainagg.NewError(domainagg.CodeForbidden, op, "missing caller", nil)
	}
	owner := ""
	if !caller.Privileged() {
		owner = caller.Name
	}

	dbc := dbctx.New(ctx)
	cfg, err := s.config.Get(dbc)
	if err != nil {
		return nil, mapStorage(op, err)
	}
	start, end := salary.DayBounds(day, s.loc)
	txns, err := s.txns.List(dbc, types.TransactionFilter{
		Owner:        owner,
		OccurredFrom: &start,
		OccurredTo:   &end,
		Limit:        repos.MaxListLimit,
	})
	if err != nil {
		return nil, mapStorage(op, err)
	}
	if len(txns) == repos.MaxListLimit {
		s.log.Warn("salary report truncated at list limit", "day", start.Format(salary.DayLayout), "limit", repos.MaxListLimit)
	}
	members, err := s.members.List(dbc, types.MemberFilter{Owner: owner, Limit: repos.MaxListLimit})
	if err != nil {
		return nil, mapStorage(op, err)
	}

	rows := salary.BuildRows(salary.Input{
		Day:          day,
		Location:     s.loc,
		Config:       *cfg,
		Transactions: txns,
		Members:      members,
		OnlyOwner:    owner,
	})
	return &SalaryReport{
		Day:      start.Format(salary.DayLayout),
		Currency: cfg.CurrencyCode,
		Rows:     rows,
		Config:   *cfg,
	}, nil
}

// Range accepts RFC3339 or YYYY-MM-DD bounds; a bare-day upper bound includes that whole day.
func (s *salaryService) Range(ctx context.Context, caller *auth.Caller, from, to string) ([]*types.Transaction, error) {
	const op = "SalaryService.Range"
	if caller == nil {
		return nil, domainagg.NewError(domainagg.CodeForbidden, op, "missing caller", nil)
	}
	start, _, err := s.parseBound(from)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "from: "+err.Error(), err)
	}
	upper, bareDay, err := s.parseBound(to)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "to: "+err.Error(), err)
	}
	end := upper.Add(time.Nanosecond)
	if bareDay {
		_, end = salary.DayBounds(upper, s.loc)
	}
	if !end.After(start) {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "from must not be after to", nil)
	}

	filter := types.TransactionFilter{
		OccurredFrom: &start,
		OccurredTo:   &end,
		ByOccurred:   true,
		Limit:        repos.MaxListLimit,
	}
	if !caller.Privileged() {
		filter.Owner = caller.Name
	}
	rows, err := s.txns.List(dbctx.New(ctx), filter)
	if err != nil {
		return nil, mapStorage(op, err)
	}
	if rows == nil {
		rows = []*types.Transaction{}
	}
	return rows, nil
}

func (s *salaryService) parseBound(raw string) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, errors.New("is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err := time.ParseInLocation(salary.DayLayout, raw, s.loc)
	if err != nil {
		return time.Time{}, false, errors.New("must be RFC3339 or YYYY-MM-DD")
	}
	return t, true, nil
}
