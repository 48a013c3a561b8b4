package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/papaya-ledger/internal/data/db"
	httpserver "github.com/yungbote/papaya-ledger/internal/http"
	"github.com/yungbote/papaya-ledger/internal/observability"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
	"github.com/yungbote/papaya-ledger/internal/realtime"
	"github.com/yungbote/papaya-ledger/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Hub      *realtime.Hub
	Metrics  *observability.Metrics
	Server   *httpserver.Server

	dbService    *db.Service
	otelShutdown func(context.Context) error
}

func New(ctx context.Context, cfg Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log = log.With("service_name", cfg.ServiceName)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OtelEndpoint,
		Headers:     cfg.OtelHeaders,
		Insecure:    cfg.OtelInsecure,
		SampleRatio: cfg.OtelSampleRatio,
	})

	dbService, err := db.NewService(log, db.Options{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
	})
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.Migrate(); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	theDB := dbService.DB()

	relay, err := bus.New(log, bus.Options{
		Driver:       cfg.RelayDriver,
		RedisURL:     cfg.RedisURL,
		Channel:      cfg.RelayChannel,
		KafkaBrokers: cfg.KafkaBrokers,
	})
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("init relay: %w", err)
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}
	hubOpts := realtime.Options{Heartbeat: cfg.SSEHeartbeat, Buffer: cfg.SSEBuffer}
	if metrics != nil {
		hubOpts.Gauge = metrics
	}
	hub := realtime.NewHub(log, relay, hubOpts)

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, hub, metrics)
	handlerset := wireHandlers(theDB, log, serviceset, hub)
	middleware := wireMiddleware(log, serviceset)

	server := httpserver.NewServer(cfg.Addr(), httpserver.RouterConfig{
		Log:                log,
		ServiceName:        cfg.ServiceName,
		CORSOrigins:        cfg.CORSOrigins,
		Metrics:            metrics,
		AuthMiddleware:     middleware.Auth,
		HealthHandler:      handlerset.Health,
		RealtimeHandler:    handlerset.Realtime,
		TransactionHandler: handlerset.Transaction,
		MemberHandler:      handlerset.Member,
		ReportHandler:      handlerset.Report,
		ConfigHandler:      handlerset.Config,
	})

	log.Info("app wired",
		"addr", cfg.Addr(),
		"db_driver", dbService.Driver(),
		"relay_driver", cfg.RelayDriver,
		"hub_origin", hub.Origin(),
	)
	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Hub:          hub,
		Metrics:      metrics,
		Server:       server,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP and the relay listener until ctx ends or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	a.Metrics.StartDBCollector(gctx, a.Log, a.DB, 15*time.Second)

	g.Go(func() error {
		a.Log.Info("http server listening", "addr", a.Cfg.Addr())
		return a.Server.Run()
	})
	g.Go(func() error {
		return a.Hub.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("shutting down")
		// Closing the hub ends open streams; Shutdown would otherwise wait on them.
		if err := a.Hub.Close(); err != nil {
			a.Log.Warn("hub close failed", "error", err)
		}
		sctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(sctx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("db close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
