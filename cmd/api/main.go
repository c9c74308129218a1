package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/authenticity-service/internal/api/http"
	"github.com/spec-kit/authenticity-service/internal/api/http/handlers"
	"github.com/spec-kit/authenticity-service/internal/auth"
	"github.com/spec-kit/authenticity-service/internal/barcode"
	"github.com/spec-kit/authenticity-service/internal/config"
	"github.com/spec-kit/authenticity-service/internal/events"
	"github.com/spec-kit/authenticity-service/internal/observability"
	"github.com/spec-kit/authenticity-service/internal/persistence"
	"github.com/spec-kit/authenticity-service/internal/repository"
	"github.com/spec-kit/authenticity-service/internal/service"
	"github.com/spec-kit/authenticity-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	tokenRepo := repository.NewTokenRepository(pool)
	attemptRepo := repository.NewScanAttemptRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	renderer := barcode.NewRenderer(cfg.Issuance.QRImageSize)

	attemptLogger := service.NewAttemptLogger(attemptRepo, logger)
	issuerService := service.NewIssuerService(service.IssuerDependencies{
		TokenRepo:  tokenRepo,
		Renderer:   renderer,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	verificationService := service.NewVerificationService(service.VerificationDependencies{
		TokenRepo:  tokenRepo,
		Attempts:   attemptLogger,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	statsService := service.NewStatsService(tokenRepo, attemptRepo, redis, cfg.Issuance.StatsCacheTTL(), logger)
	authService := service.NewAuthService(*cfg, adminRepo, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	if err := authService.SeedAdmin(ctx); err != nil {
		logger.Warn("failed to seed admin account", zap.Error(err))
	}

	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), adminRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	qrcodesHandler := handlers.NewQRCodesHandler(issuerService, verificationService, statsService, cfg.Issuance.MaxBatchSize)
	adminHandler := handlers.NewAdminHandler(authService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		QRCodes:        qrcodesHandler,
		Admin:          adminHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
