package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-tracker/internal/api/dto"
	httptransport "github.com/spec-kit/maintenance-tracker/internal/api/http"
	"github.com/spec-kit/maintenance-tracker/internal/api/http/handlers"
	"github.com/spec-kit/maintenance-tracker/internal/auth"
	"github.com/spec-kit/maintenance-tracker/internal/config"
	"github.com/spec-kit/maintenance-tracker/internal/events"
	"github.com/spec-kit/maintenance-tracker/internal/observability"
	"github.com/spec-kit/maintenance-tracker/internal/persistence"
	"github.com/spec-kit/maintenance-tracker/internal/repository"
	"github.com/spec-kit/maintenance-tracker/internal/service"
	"github.com/spec-kit/maintenance-tracker/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

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
	stores := repository.NewStores(pg.PoolHandle())

	var (
		redis   *persistence.Redis
		revoked auth.RevocationList
	)
	switch cfg.Session.RevocationBackend {
	case config.RevocationBackendRedis:
		redis, err = persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redis.Close()
		revoked = auth.NewRedisRevocationList(redis.Client)
	default:
		logger.Warn("revoked tokens are kept in memory and lost on restart")
		revoked = auth.NewMemoryRevocationList()
	}

	sessions := auth.NewSessionStore(auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL()), revoked)
	dispatcher := events.NewBus()
	worker.StartNotificationWorker(dispatcher, logger, cfg.Notification)

	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   stores.Users,
		Sessions:   sessions,
		Hasher:     auth.NewHasher(cfg.Auth.BcryptCost),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo: stores.Requests,
		UserRepo:    stores.Users,
		HistoryRepo: stores.History,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	validator := dto.NewValidator()
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, handlers.PostgresDependency(pg), handlers.RedisDependency(redis)),
		Auth:           handlers.NewAuthHandler(userService, validator),
		Users:          handlers.NewUsersHandler(userService),
		Requests:       handlers.NewRequestsHandler(requestService, validator),
		AuthMiddleware: auth.NewAuthMiddleware(sessions, stores.Users),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
