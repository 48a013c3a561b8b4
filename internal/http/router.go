package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/papaya-ledger/internal/http/handlers"
	httpMW "github.com/yungbote/papaya-ledger/internal/http/middleware"
	"github.com/yungbote/papaya-ledger/internal/observability"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler      *httpH.HealthHandler
	RealtimeHandler    *httpH.RealtimeHandler
	TransactionHandler *httpH.TransactionHandler
	MemberHandler      *httpH.MemberHandler
	ReportHandler      *httpH.ReportHandler
	ConfigHandler      *httpH.ConfigHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log, "/healthcheck", "/metrics"))
	}
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	admin := func() gin.HandlerFunc {
		if cfg.AuthMiddleware == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return cfg.AuthMiddleware.RequireAdmin()
	}

	// Realtime (SSE)
	if cfg.RealtimeHandler != nil {
		api.GET("/stream", cfg.RealtimeHandler.Stream)
	}

	// Ledger
	if cfg.TransactionHandler != nil {
		api.GET("/transactions", cfg.TransactionHandler.List)
		api.POST("/transactions", cfg.TransactionHandler.Create)
		api.PATCH("/transactions/:id", admin(), cfg.TransactionHandler.Update)
	}
	if cfg.MemberHandler != nil {
		api.GET("/members", cfg.MemberHandler.List)
		api.POST("/members", cfg.MemberHandler.Create)
		api.GET("/members/:id", cfg.MemberHandler.Get)
		api.PATCH("/members/:id", cfg.MemberHandler.Update)
	}

	// Reports
	if cfg.ReportHandler != nil {
		api.GET("/reports/salary/today", cfg.ReportHandler.SalaryToday)
		api.GET("/reports/salary", cfg.ReportHandler.SalaryForDay)
		api.POST("/reports/range", cfg.ReportHandler.Range)
	}

	// Salary config
	if cfg.ConfigHandler != nil {
		api.GET("/config", cfg.ConfigHandler.Get)
		api.PUT("/config", admin(), cfg.ConfigHandler.Save)
	}

	return r
}
