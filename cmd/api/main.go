package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/renewal-reminder/internal/bootstrap"
	"github.com/kursadbilgin/renewal-reminder/internal/config"
	"github.com/kursadbilgin/renewal-reminder/internal/handler"
	"github.com/kursadbilgin/renewal-reminder/internal/infra/postgresql"
	"github.com/kursadbilgin/renewal-reminder/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/renewal-reminder/internal/infra/redis"
	"github.com/kursadbilgin/renewal-reminder/internal/observability"
	"github.com/kursadbilgin/renewal-reminder/internal/transport"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, "renewal-reminder-api")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	engine, err := bootstrap.NewEngine(cfg, db, rdb, metrics, logger)
	if err != nil {
		logger.Fatal("engine initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:               "renewal-reminder-api",
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(logger),
	})
	app.Use(transport.CorrelationMiddleware())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, handler.PostgresCheck(sqlDB), handler.RedisCheck(rdb))
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterRunRoutes(app, engine.Runs); err != nil {
		logger.Fatal("run routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterLogRoutes(app, engine.Logs); err != nil {
		logger.Fatal("log routes registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("renewal-reminder api started", zap.Int("port", cfg.APIPort))
		serverErr <- app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("api server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("api shutdown failed", zap.Error(err))
		}
	}

	logger.Info("renewal-reminder api stopped")
}
