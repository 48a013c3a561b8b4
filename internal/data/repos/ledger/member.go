package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/papaya-ledger/internal/domain"
	"github.com/yungbote/papaya-ledger/internal/platform/dbctx"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
)

const (
	DefaultListLimit = 500
	MaxListLimit     = 5000
)

type MemberRepo interface {
	Create(dbc dbctx.Context, rows []*types.Member) ([]*types.Member, error)

	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Member, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Member, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Member, error)

	List(dbc dbctx.Context, filter types.MemberFilter) ([]*types.Member, error)

	// UpdateProfile rewrites the descriptive columns. Counters are never touched.
	UpdateProfile(dbc dbctx.Context, row *types.Member) error

	// Increment adds e to the member's counters in one statement.
	// Returns gorm.ErrRecordNotFound when the member does not exist.
	Increment(dbc dbctx.Context, id uuid.UUID, e types.Effect) error
}

type memberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
	return &memberRepo{db: db, log: baseLog.With("repo", "MemberRepo")}
}

func (r *memberRepo) Create(dbc dbctx.Context, rows []*types.Member) ([]*types.Member, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Member{}, nil
	}
	now := time.Now().UTC()
	for _, m := range rows {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		// Counters start at zero; only Increment moves them.
		m.Received, m.PaidOut, m.Frozen, m.Runaway, m.Charges = zero, zero, zero, zero, zero
		m.CreatedAt, m.UpdatedAt = now, now
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *memberRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Member, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Member
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *memberRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Member, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *memberRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Member, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.Member
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *memberRepo) List(dbc dbctx.Context, filter types.MemberFilter) ([]*types.Member, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).Model(&types.Member{})
	if owner := strings.TrimSpace(filter.Owner); owner != "" {
		q = q.Where("LOWER(owner) = ?", strings.ToLower(owner))
	}
	var out []*types.Member
	if err := q.Order("owner ASC, name ASC").Limit(clampLimit(filter.Limit)).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *memberRepo) Increment(dbc dbctx.Context, id uuid.UUID, e types.Effect) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.Member{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"received":   gorm.Expr("received + ?", e.Received),
			"paid_out":   gorm.Expr("paid_out + ?", e.PaidOut),
			"frozen":     gorm.Expr("frozen + ?", e.Frozen),
			"runaway":    gorm.Expr("runaway + ?", e.Runaway),
			"charges":    gorm.Expr("charges + ?", e.Charges),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// profileColumns are the member fields a caller may edit.
var profileColumns = []string{"owner", "name", "work_id", "group_name", "opening", "bonus_rate_override", "updated_at"}

func (r *memberRepo) UpdateProfile(dbc dbctx.Context, row *types.Member) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	row.UpdatedAt = time.Now().UTC()
	res := t.WithContext(dbc.Ctx).
		Model(&types.Member{}).
		Where("id = ?", row.ID).
		Select(profileColumns).
		Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
