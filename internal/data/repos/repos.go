package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/papaya-ledger/internal/data/repos/ledger"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
)

type MemberRepo = ledger.MemberRepo
type TransactionRepo = ledger.TransactionRepo
type SalaryConfigRepo = ledger.SalaryConfigRepo

const (
	DefaultListLimit = ledger.DefaultListLimit
	MaxListLimit     = ledger.MaxListLimit
)

func NewMemberRepo(db *gorm.DB, log *logger.Logger) MemberRepo {
	return ledger.NewMemberRepo(db, log)
}

func NewTransactionRepo(db *gorm.DB, log *logger.Logger) TransactionRepo {
	return ledger.NewTransactionRepo(db, log)
}

func NewSalaryConfigRepo(db *gorm.DB, log *logger.Logger) SalaryConfigRepo {
	return ledger.NewSalaryConfigRepo(db, log)
}
