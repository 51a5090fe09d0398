package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kursadbilgin/renewal-reminder/internal/bootstrap"
	"github.com/kursadbilgin/renewal-reminder/internal/config"
	"github.com/kursadbilgin/renewal-reminder/internal/infra/postgresql"
	"github.com/kursadbilgin/renewal-reminder/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/renewal-reminder/internal/infra/redis"
	"github.com/kursadbilgin/renewal-reminder/internal/observability"
	"github.com/kursadbilgin/renewal-reminder/internal/queue"
	"github.com/kursadbilgin/renewal-reminder/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runs for one reference date are serialized by the run lock, so a single
// consumer is enough.
const runWorkerConcurrency = 1

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, "renewal-reminder-worker")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		logger.Fatal("RABBITMQ_URL is required for the worker")
	}

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

	// The worker keeps running without Redis; the notification log constraint
	// still prevents duplicate sends.
	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, running without run lock", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	engine, err := bootstrap.NewEngine(cfg, db, rdb, observability.NewMetrics(), logger)
	if err != nil {
		logger.Fatal("engine initialization failed", zap.Error(err))
	}

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.WorkerPrefetch, logger.Named("consumer"))
	publisher := queue.NewRabbitMQPublisher(rabbit)

	worker, err := service.NewRunWorker(engine.Runs, consumer, runWorkerConcurrency, logger.Named("worker"))
	if err != nil {
		logger.Fatal("run worker initialization failed", zap.Error(err))
	}

	scheduler, err := service.NewTriggerScheduler(publisher, cfg.RunSchedule, cfg.Location(), cfg.TestMode, logger.Named("scheduler"))
	if err != nil {
		logger.Fatal("trigger scheduler initialization failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("renewal-reminder worker started",
		zap.String("queue", queue.RunQueueName),
		zap.String("schedule", cfg.RunSchedule),
		zap.Bool("test_mode", cfg.TestMode),
	)

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Start(groupCtx) })
	g.Go(func() error { return scheduler.Start(groupCtx) })

	if err := g.Wait(); err != nil {
		logger.Error("worker stopped with error", zap.Error(err))
		return
	}

	logger.Info("renewal-reminder worker stopped")
}
