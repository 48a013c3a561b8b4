package ledger

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/papaya-ledger/internal/domain"
	"github.com/yungbote/papaya-ledger/internal/platform/dbctx"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
)

type SalaryConfigRepo interface {
	// Get returns the stored config, or the defaults when none was saved yet.
	Get(dbc dbctx.Context) (*types.SalaryConfig, error)
	Save(dbc dbctx.Context, cfg *types.SalaryConfig) (*types.SalaryConfig, error)
}

type salaryConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSalaryConfigRepo(db *gorm.DB, baseLog *logger.Logger) SalaryConfigRepo {
	return &salaryConfigRepo{db: db, log: baseLog.With("repo", "SalaryConfigRepo")}
}

func (r *salaryConfigRepo) Get(dbc dbctx.Context) (*types.SalaryConfig, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.SalaryConfig
	if err := t.WithContext(dbc.Ctx).Where("id = ?", 1).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == 0 {
		def := types.DefaultSalaryConfig()
		return &def, nil
	}
	return &row, nil
}

func (r *salaryConfigRepo) Save(dbc dbctx.Context, cfg *types.SalaryConfig) (*types.SalaryConfig, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	row := *cfg
	row.ID = 1
	row.CurrencyCode = types.NormalizeCurrency(row.CurrencyCode)
	row.UpdatedAt = time.Now().UTC()
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"currency_code", "bonus_rate", "fixed_per_task", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
