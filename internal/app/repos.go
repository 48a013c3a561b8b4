package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/papaya-ledger/internal/data/repos"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
)

type Repos struct {
	Member       repos.MemberRepo
	Transaction  repos.TransactionRepo
	SalaryConfig repos.SalaryConfigRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Member:       repos.NewMemberRepo(db, log),
		Transaction:  repos.NewTransactionRepo(db, log),
		SalaryConfig: repos.NewSalaryConfigRepo(db, log),
	}
}
