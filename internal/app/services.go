package app

import (
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/papaya-ledger/internal/data/aggregates"
	"github.com/yungbote/papaya-ledger/internal/observability"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
	"github.com/yungbote/papaya-ledger/internal/realtime"
	"github.com/yungbote/papaya-ledger/internal/services"
)

type Services struct {
	Auth        services.AuthService
	Member      services.MemberService
	Transaction services.TransactionService
	Salary      services.SalaryService
	Config      services.ConfigService
}

// aggregateHooks sends every ledger write outcome to both metrics and the log.
type aggregateHooks []aggregates.Hooks

func (h aggregateHooks) ObserveOperation(name, status string, dur time.Duration) {
	for _, x := range h {
		x.ObserveOperation(name, status, dur)
	}
}

func (h aggregateHooks) IncConflict(name string) {
	for _, x := range h {
		x.IncConflict(name)
	}
}

func (h aggregateHooks) IncRetry(name string) {
	for _, x := range h {
		x.IncRetry(name)
	}
}

func (h aggregateHooks) IncPartialLedger(name string) {
	for _, x := range h {
		x.IncPartialLedger(name)
	}
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, hub *realtime.Hub, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	hooks := aggregateHooks{aggregates.NewLogHooks(log, 0)}
	if metrics != nil {
		hooks = append(hooks, metrics)
	}
	ledger := aggregates.NewLedgerAggregate(aggregates.LedgerAggregateDeps{
		Base:         aggregates.BaseDeps{DB: db, Log: log, Hooks: hooks},
		Members:      reposet.Member,
		Transactions: reposet.Transaction,
		Publisher:    hub,
	})
	return Services{
		Auth:        services.NewAuthService(log, cfg.JWTSecret),
		Member:      services.NewMemberService(log, aggregates.NewGormTxRunner(db), reposet.Member, reposet.Transaction, hub),
		Transaction: services.NewTransactionService(log, reposet.Transaction, ledger),
		Salary:      services.NewSalaryService(log, reposet.Transaction, reposet.Member, reposet.SalaryConfig, cfg.ReportLocation()),
		Config:      services.NewConfigService(log, reposet.SalaryConfig, hub),
	}
}
