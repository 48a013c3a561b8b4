package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/papaya-ledger/internal/data/aggregates"
	"github.com/yungbote/papaya-ledger/internal/data/repos"
	types "github.com/yungbote/papaya-ledger/internal/domain"
	domainagg "github.com/yungbote/papaya-ledger/internal/domain/aggregates"
	"github.com/yungbote/papaya-ledger/internal/domain/auth"
	"github.com/yungbote/papaya-ledger/internal/domain/ledger"
	"github.com/yungbote/papaya-ledger/internal/platform/dbctx"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
)

type CreateMemberInput struct {
	Owner             string
	Name              string
	WorkID            string
	Group             string
	Opening           decimal.Decimal
	BonusRateOverride *decimal.Decimal
}

// UpdateMemberInput edits a member's profile. Nil fields are left alone; counters are not editable.
type UpdateMemberInput struct {
	MemberID          uuid.UUID
	Owner             *string
	Name              *string
	WorkID            *string
	Group             *string
	Opening           *decimal.Decimal
	BonusRateOverride ledger.Optional[decimal.Decimal]
}

type MemberService interface {
	List(ctx context.Context, caller *auth.Caller) ([]*types.Member, error)
	Get(ctx context.Context, caller *auth.Caller, id uuid.UUID) (*types.Member, error)
	Create(ctx context.Context, caller *auth.Caller, in CreateMemberInput) (*types.Member, error)
	Update(ctx context.Context, caller *auth.Caller, in UpdateMemberInput) (*types.Member, error)
}

type memberService struct {
	log     *logger.Logger
	runner  aggregates.TxRunner
	members repos.MemberRepo
	txns    repos.TransactionRepo
	pub     aggregates.Publisher
}

func NewMemberService(log *logger.Logger, runner aggregates.TxRunner, members repos.MemberRepo, txns repos.TransactionRepo, pub aggregates.Publisher) MemberService {
	return &memberService{
		log:     log.With("service", "MemberService"),
		runner:  runner,
		members: members,
		txns:    txns,
		pub:     pub,
	}
}

func (s *memberService) List(ctx context.Context, caller *auth.Caller) ([]*types.Member, error) {
	const op = "MemberService.List"
	if caller == nil {
		return nil, domainagg.NewError(domainagg.CodeForbidden, op, "missing caller", nil)
	}
	filter := types.MemberFilter{Limit: repos.MaxListLimit}
	if !caller.Privileged() {
		filter.Owner = caller.Name
	}
	rows, err := s.members.List(dbctx.New(ctx), filter)
	if err != nil {
		return nil, mapStorage(op, err)
	}
	return rows, nil
}

// Create registers a member with zero aggregates. Non-admins always create under their own
// name and cannot set a bonus override.
func (s *memberService) Create(ctx context.Context, caller *auth.Caller, in CreateMemberInput) (*types.Member, error) {
	const op = "MemberService.Create"
	if caller == nil {
		return nil, domainagg.NewError(domainagg.CodeForbidden, op, "missing caller", nil)
	}
	if !caller.Privileged() {
		in.Owner = caller.Name
		in.BonusRateOverride = nil
	}
	in.Owner = strings.TrimSpace(in.Owner)
	in.Name = strings.TrimSpace(in.Name)
	if in.Owner == "" {
		in.Owner = caller.Name
	}
	if in.Name == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "name is required", nil)
	}
	if in.BonusRateOverride != nil && in.BonusRateOverride.IsNegative() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "bonusRateOverride must be >= 0", nil)
	}

	created, err := s.members.Create(dbctx.New(ctx), []*types.Member{{
		Owner:             in.Owner,
		Name:              in.Name,
		WorkID:            strings.TrimSpace(in.WorkID),
		Group:             strings.TrimSpace(in.Group),
		Opening:           in.Opening,
		BonusRateOverride: in.BonusRateOverride,
	}})
	if err != nil {
		s.log.Warn("create member failed", "owner", in.Owner, "error", err)
		return nil, mapStorage(op, err)
	}
	m := created[0]
	if s.pub != nil {
		s.pub.Publish(ctx, types.EventMemberUpdated, m)
	}
	return m, nil
}

func (s *memberService) Get(ctx context.Context, caller *auth.Caller, id uuid.UUID) (*types.Member, error) {
	const op = "MemberService.Get"
	if caller == nil {
		return nil, domainagg.NewError(domainagg.CodeForbidden, op, "missing caller", nil)
	}
	m, err := s.members.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, mapStorage(op, err)
	}
	if m == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "member not found: "+id.String(), nil)
	}
	if !caller.CanAccessOwner(m.Owner) {
		return nil, domainagg.NewError(domainagg.CodeForbidden, op, "member belongs to another owner", nil)
	}
	return m, nil
}

// Update edits the profile under a row lock. Non-admins may only edit their own members and
// cannot move them to another owner or touch the bonus override. A change of owner, name or
// group is copied onto the member's transactions in the same transaction.
func (s *memberService) Update(ctx context.Context, caller *auth.Caller, in UpdateMemberInput) (*types.Member, error) {
	const op = "MemberService.Update"
	if caller == nil {
		return nil, domainagg.NewError(domainagg.CodeForbidden, op, "missing caller", nil)
	}
	if in.MemberID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing member id", nil)
	}
	if !caller.Privileged() {
		in.Owner = nil
		in.BonusRateOverride = ledger.Optional[decimal.Decimal]{}
	}
	if in.Owner != nil && strings.TrimSpace(*in.Owner) == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "owner is required", nil)
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "name is required", nil)
	}
	if v := in.BonusRateOverride.Value; v != nil && v.IsNegative() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "bonusRateOverride must be >= 0", nil)
	}

	var out *types.Member
	err := s.runner.InTx(ctx, func(dbc dbctx.Context) error {
		m, err := s.members.LockByID(dbc, in.MemberID)
		if err != nil {
			return err
		}
		if m == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, "member not found: "+in.MemberID.String(), nil)
		}
		if !caller.CanAccessOwner(m.Owner) {
			return domainagg.NewError(domainagg.CodeForbidden, op, "member belongs to another owner", nil)
		}

		before := *m
		if in.Owner != nil {
			m.Owner = strings.TrimSpace(*in.Owner)
		}
		if in.Name != nil {
			m.Name = strings.TrimSpace(*in.Name)
		}
		if in.WorkID != nil {
			m.WorkID = strings.TrimSpace(*in.WorkID)
		}
		if in.Group != nil {
			m.Group = strings.TrimSpace(*in.Group)
		}
		if in.Opening != nil {
			m.Opening = *in.Opening
		}
		m.BonusRateOverride = in.BonusRateOverride.Apply(m.BonusRateOverride)

		if err := s.members.UpdateProfile(dbc, m); err != nil {
			return err
		}
		if m.Owner != before.Owner || m.Name != before.Name || m.Group != before.Group {
			n, err := s.txns.Reattribute(dbc, m)
			if err != nil {
				return err
			}
			s.log.Info("member renamed", "member_id", m.ID.String(), "transactions", n)
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, mapStorage(op, err)
	}
	if s.pub != nil {
		s.pub.Publish(ctx, types.EventMemberUpdated, out)
	}
	return out, nil
}
