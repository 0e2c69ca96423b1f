package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/donation/backend/docs"
	campaignapp "github.com/donation/backend/internal/application/campaign"
	eventapp "github.com/donation/backend/internal/application/event"
	identityapp "github.com/donation/backend/internal/application/identity"
	"github.com/donation/backend/internal/application/ledger"
	"github.com/donation/backend/internal/application/lifecycle"
	reportapp "github.com/donation/backend/internal/application/report"
	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/domain/donation"
	"github.com/donation/backend/internal/infrastructure/auth"
	"github.com/donation/backend/internal/infrastructure/cache"
	"github.com/donation/backend/internal/infrastructure/config"
	"github.com/donation/backend/internal/infrastructure/event"
	"github.com/donation/backend/internal/infrastructure/logger"
	"github.com/donation/backend/internal/infrastructure/persistence"
	"github.com/donation/backend/internal/infrastructure/scheduler"
	"github.com/donation/backend/internal/infrastructure/storage"
	"github.com/donation/backend/internal/infrastructure/telemetry"
	"github.com/donation/backend/internal/interfaces/http/handler"
	"github.com/donation/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

//	@title			Donation Platform API
//	@version		1.0
//	@description	Donation campaign platform: campaigns, donation ledger and admin moderation.

//	@contact.name	API Support

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	staticFields := logger.WithFields(
		zap.String("service", cfg.Telemetry.ServiceName),
		zap.String("env", cfg.App.Env),
	)

	// Telemetry needs a logger before the OTLP log bridge exists
	bootLog, err := logger.New(logCfg, staticFields)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	rootCtx := context.Background()
	tel, err := telemetry.Setup(rootCtx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	log := bootLog
	if tel.Logs.IsEnabled() {
		log, err = logger.New(logCfg, staticFields, logger.WithTee(tel.Logs.ZapCore(logger.ParseLevel(cfg.Log.Level))))
		if err != nil {
			bootLog.Fatal("Failed to initialize logger", zap.Error(err))
		}
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting donation backend",
		zap.String("app", cfg.App.Name),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	// Database with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithBoundValues(cfg.Log.Level == "debug" && !cfg.App.IsProduction()))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbMetrics, err := telemetry.InstrumentDB(rootCtx, db.DB,
		telemetry.DBInstrumentationConfigFrom(cfg.Telemetry, cfg.Database.DBName), tel.Meter, log)
	if err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	if dbMetrics != nil {
		defer dbMetrics.Stop()
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
		log.Info("Schema migrated")
	}

	// Idempotency keys, revoked tokens and rate limits
	stores, err := cache.NewStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).CreateStores(rootCtx)
	if err != nil {
		log.Fatal("Failed to initialize stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Warn("Error closing stores", zap.Error(err))
		}
	}()

	// Repositories
	campaignRepo := persistence.NewGormCampaignRepository(db.DB)
	donationRepo := persistence.NewGormDonationRepository(db.DB)
	adminRepo := persistence.NewGormAdminRepository(db.DB)
	reportRepo := persistence.NewGormReportRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Domain events are logged as the activity trail
	eventBus := event.NewInMemoryEventBus(log, event.WithWorkers(2), event.WithQueueSize(256))
	eventBus.Subscribe(eventapp.NewActivityLogHandler(nil, log))
	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:           tel.Meter.Meter("donation"),
		Logger:          log,
		Campaigns:       reportRepo,
		CollectInterval: cfg.Telemetry.MetricsInterval,
	})
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}
	if tel.Meter.IsEnabled() {
		businessMetrics.StartCollection(rootCtx)
	}
	defer businessMetrics.Stop()

	// Application services
	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		log.Fatal("Failed to initialize JWT service", zap.Error(err))
	}
	authService := identityapp.NewAuthService(adminRepo, jwtService, stores.TokenBlacklist,
		identityapp.AuthServiceConfigFrom(cfg.Auth), log)
	authService.SetEventPublisher(eventBus)

	campaignService := campaignapp.NewService(campaignRepo, txScope, campaign.Policy{
		MinGoal:         cfg.Campaign.MinGoal,
		MaxDurationDays: cfg.Campaign.MaxDurationDays,
		AutoApprove:     cfg.Campaign.AutoApprove,
	}, log)
	campaignService.SetEventPublisher(eventBus)

	ledgerService := ledger.NewService(campaignRepo, donationRepo, txScope, ledger.Config{
		Policy:         donation.Policy{MinAmount: cfg.Donation.MinAmount},
		MaxRetries:     cfg.Donation.MaxRetries,
		RetryBaseDelay: cfg.Donation.RetryBaseDelay,
		IdempotencyTTL: cfg.Donation.IdempotencyTTL,
	}, log)
	ledgerService.SetIdempotencyStore(stores.Idempotency)
	ledgerService.SetEventPublisher(eventBus)
	ledgerService.SetMetrics(businessMetrics)

	reportService := reportapp.NewService(reportRepo, campaignRepo, donationRepo, log)

	sweeper := lifecycle.NewSweeper(campaignRepo, cfg.Scheduler.BatchSize, log)
	sweeper.SetEventPublisher(eventBus)
	sweeper.SetMetrics(businessMetrics)
	sweepTrigger := scheduler.NewSweepTrigger(scheduler.SweepTriggerConfig{
		Enabled:  cfg.Scheduler.Enabled,
		Interval: cfg.Scheduler.SweepInterval,
		Timeout:  cfg.Scheduler.SweepTimeout,
	}, sweeper, log)

	handlers := router.Handlers{
		Campaign:  handler.NewCampaignHandler(campaignService, ledgerService),
		Donation:  handler.NewDonationHandler(ledgerService),
		Auth:      handler.NewAuthHandler(authService),
		Report:    handler.NewReportHandler(reportService),
		Lifecycle: handler.NewLifecycleHandler(sweepTrigger),
		System: handler.NewSystemHandler(telemetry.ServiceVersion,
			handler.HealthCheck{
				Name:     "database",
				Critical: true,
				Check:    func(context.Context) error { return db.Ping() },
			},
			handler.HealthCheck{
				Name:  "cache",
				Check: stores.Ping,
			},
		),
	}

	// Object storage backs campaign media uploads
	if cfg.Storage.Enabled {
		objectStorage, err := storage.NewS3ObjectStorage(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiry(cfg.Storage.PresignExpiry),
		)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		mediaCfg := campaignapp.DefaultMediaConfig()
		if cfg.Storage.PresignExpiry > 0 {
			mediaCfg.UploadURLExpiry = cfg.Storage.PresignExpiry
		}
		if cfg.Storage.MaxUploadSize > 0 {
			mediaCfg.MaxUploadSize = cfg.Storage.MaxUploadSize
		}
		handlers.Media = handler.NewMediaHandler(
			campaignapp.NewMediaService(campaignRepo, objectStorage, mediaCfg, log))
	} else {
		log.Info("Object storage disabled, media upload routes not registered")
	}

	engine := router.NewEngine(router.Dependencies{
		Config:        cfg,
		Logger:        log,
		Authenticator: authService,
		RateCounter:   stores.RateLimits,
		Meter:         tel.Meter.Meter("http.server"),
		Handlers:      handlers,
	})

	if err := sweepTrigger.Start(rootCtx); err != nil {
		log.Fatal("Failed to start lifecycle sweep", zap.Error(err))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sweepTrigger.Stop(ctx); err != nil {
		log.Warn("Lifecycle sweep did not stop cleanly", zap.Error(err))
	}
	if err := eventBus.Stop(ctx); err != nil {
		log.Warn("Event bus did not drain", zap.Error(err))
	}
	if err := tel.Shutdown(ctx); err != nil {
		log.Warn("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
