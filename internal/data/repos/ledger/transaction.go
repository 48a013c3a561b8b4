package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/papaya-ledger/internal/domain"
	"github.com/yungbote/papaya-ledger/internal/platform/dbctx"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
)

var zero = decimal.Zero

// mutableColumns are rewritten by Replace; id and created_at never change.
var mutableColumns = []string{
	"member_id", "owner_name", "member_name", "group_name",
	"type", "amount", "fee", "bonus_rate", "note",
	"crypto_address", "bank_details", "occurred_at", "updated_at",
}

type TransactionRepo interface {
	Create(dbc dbctx.Context, row *types.Transaction) (*types.Transaction, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Transaction, error)
	GetByIdempotencyKey(dbc dbctx.Context, key string) (*types.Transaction, error)

	// LockByID reads the pre-update snapshot and holds the row until the transaction ends.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Transaction, error)

	Replace(dbc dbctx.Context, row *types.Transaction) error

	// Reattribute copies m's owner, name and group onto every transaction recorded against it.
	Reattribute(dbc dbctx.Context, m *types.Member) (int64, error)

	List(dbc dbctx.Context, filter types.TransactionFilter) ([]*types.Transaction, error)
}

type transactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	return &transactionRepo{db: db, log: baseLog.With("repo", "TransactionRepo")}
}

func (r *transactionRepo) Create(dbc dbctx.Context, row *types.Transaction) (*types.Transaction, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil, nil
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = row.CreatedAt
	if row.OccurredAt.IsZero() {
		row.OccurredAt = row.CreatedAt
	}
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *transactionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Transaction, error) {
	return r.first(dbc, false, "id = ?", id)
}

func (r *transactionRepo) GetByIdempotencyKey(dbc dbctx.Context, key string) (*types.Transaction, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	return r.first(dbc, false, "idempotency_key = ?", key)
}

func (r *transactionRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Transaction, error) {
	return r.first(dbc, true, "id = ?", id)
}

func (r *transactionRepo) first(dbc dbctx.Context, lock bool, where string, arg interface{}) (*types.Transaction, error) {
	if id, ok := arg.(uuid.UUID); ok && id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row types.Transaction
	if err := q.Where(where, arg).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *transactionRepo) Replace(dbc dbctx.Context, row *types.Transaction) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.ID == uuid.Nil {
		return gorm.ErrRecordNotFound
	}
	row.UpdatedAt = time.Now().UTC()
	res := t.WithContext(dbc.Ctx).
		Model(&types.Transaction{}).
		Where("id = ?", row.ID).
		Select(mutableColumns).
		Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *transactionRepo) Reattribute(dbc dbctx.Context, m *types.Member) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if m == nil || m.ID == uuid.Nil {
		return 0, nil
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.Transaction{}).
		Where("member_id = ?", m.ID).
		Updates(map[string]interface{}{
			"owner_name":  m.Owner,
			"member_name": m.Name,
			"group_name":  m.Group,
			"updated_at":  time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *transactionRepo) List(dbc dbctx.Context, f types.TransactionFilter) ([]*types.Transaction, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).Model(&types.Transaction{})

	if owner := strings.TrimSpace(f.Owner); owner != "" {
		q = q.Where("LOWER(owner_name) = ?", strings.ToLower(owner))
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if member := strings.TrimSpace(f.Member); member != "" {
		q = q.Where(`LOWER(member_name) LIKE ? ESCAPE '\'`, containsPattern(member))
	}
	if text := strings.TrimSpace(f.Query); text != "" {
		p := containsPattern(text)
		q = q.Where(`(LOWER(owner_name) LIKE ? ESCAPE '\'
			OR LOWER(member_name) LIKE ? ESCAPE '\'
			OR LOWER(type) LIKE ? ESCAPE '\'
			OR LOWER(note) LIKE ? ESCAPE '\'
			OR LOWER(COALESCE(bank_details, '')) LIKE ? ESCAPE '\'
			OR LOWER(COALESCE(crypto_address, '')) LIKE ? ESCAPE '\')`, p, p, p, p, p, p)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", f.To.UTC())
	}
	if f.OccurredFrom != nil {
		q = q.Where("occurred_at >= ?", f.OccurredFrom.UTC())
	}
	if f.OccurredTo != nil {
		q = q.Where("occurred_at < ?", f.OccurredTo.UTC())
	}

	var out []*types.Transaction
	order := "created_at DESC, id DESC"
	if f.ByOccurred {
		order = "occurred_at DESC, created_at DESC, id DESC"
	}
	if err := q.Order(order).Limit(clampLimit(f.Limit)).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// containsPattern lower-cases s and escapes LIKE metacharacters.
func containsPattern(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}
