package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/kursadbilgin/renewal-reminder/internal/observability"
	"github.com/kursadbilgin/renewal-reminder/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// Runner executes reminder runs. *RunService implements it.
type Runner interface {
	RunLive(ctx context.Context, date *time.Time) (*domain.RunSummary, error)
	RunDiagnostic(ctx context.Context) *domain.DiagnosticResult
}

// RunWorker consumes run trigger messages and executes them.
type RunWorker struct {
	runs        Runner
	consumer    queue.Consumer
	logger      *zap.Logger
	concurrency int
}

func NewRunWorker(runs Runner, consumer queue.Consumer, concurrency int, logger *zap.Logger) (*RunWorker, error) {
	if runs == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RunWorker{
		runs:        runs,
		consumer:    consumer,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

// Start consumes the run queue until ctx is cancelled or a consumer fails.
func (w *RunWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("run worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queue.RunQueueName),
			)

			if err := w.consumer.Consume(groupCtx, queue.RunQueueName, w.processMessage); err != nil {
				w.logger.Error("run worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("run worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

// processMessage returns an error only for failures worth one redelivery.
func (w *RunWorker) processMessage(ctx context.Context, msg queue.RunMessage) error {
	ctx = observability.WithRunID(ctx, msg.RunID)
	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}
	log := observability.WithContextLogger(w.logger, ctx).With(zap.String("mode", msg.Mode.String()))

	switch msg.Mode {
	case domain.RunModeDiagnostic:
		result := w.runs.RunDiagnostic(ctx)
		log.Info("diagnostic run message processed", zap.Any("channels", result.Channels))
		return nil

	case domain.RunModeLive:
		var date *time.Time
		if msg.Date != "" {
			parsed, err := domain.ParseDate(msg.Date)
			if err != nil {
				log.Warn("dropping run message with invalid date", zap.Error(err))
				return nil
			}
			date = &parsed
		}

		summary, err := w.runs.RunLive(ctx, date)
		if err != nil {
			if errors.Is(err, domain.ErrRunInProgress) {
				log.Info("dropping run message, run already in progress")
				return nil
			}
			return fmt.Errorf("live run failed: %w", err)
		}

		log.Info("live run message processed",
			zap.String("date", domain.FormatDate(summary.Date)),
			zap.Int("sent", summary.Sent),
			zap.Int("skipped", summary.Skipped),
			zap.Int("errors", summary.Errors),
		)
		return nil
	}

	log.Warn("dropping run message with unknown mode")
	return nil
}
