package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/papaya-ledger/internal/http/handlers"
	httpMW "github.com/yungbote/papaya-ledger/internal/http/middleware"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
	"github.com/yungbote/papaya-ledger/internal/realtime"
)

type Handlers struct {
	Health      *httpH.HealthHandler
	Realtime    *httpH.RealtimeHandler
	Transaction *httpH.TransactionHandler
	Member      *httpH.MemberHandler
	Report      *httpH.ReportHandler
	Config      *httpH.ConfigHandler
}

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireHandlers(db *gorm.DB, log *logger.Logger, svc Services, hub *realtime.Hub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(db),
		Realtime:    httpH.NewRealtimeHandler(log, hub),
		Transaction: httpH.NewTransactionHandler(svc.Transaction),
		Member:      httpH.NewMemberHandler(svc.Member),
		Report:      httpH.NewReportHandler(svc.Salary),
		Config:      httpH.NewConfigHandler(svc.Config),
	}
}

func wireMiddleware(log *logger.Logger, svc Services) Middleware {
	return Middleware{Auth: httpMW.NewAuthMiddleware(log, svc.Auth)}
}
