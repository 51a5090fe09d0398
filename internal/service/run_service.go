package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/kursadbilgin/renewal-reminder/internal/observability"
	"github.com/kursadbilgin/renewal-reminder/internal/runlock"
	"go.uber.org/zap"
)

const (
	runResultOK     = "ok"
	runResultError  = "error"
	runResultLocked = "locked"

	lockReleaseTimeout = 5 * time.Second
)

// RunService is the entry point shared by every trigger surface. It tags the
// run with an id, serializes live runs per reference date and records run
// metrics.
type RunService struct {
	dispatcher *Dispatcher
	diagnostic *DiagnosticService
	locker     runlock.Locker
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
	newID      func() string
}

// NewRunService wires the run entry point. A nil locker disables the run lock;
// the notification log constraint still prevents duplicate sends.
func NewRunService(
	dispatcher *Dispatcher,
	diagnostic *DiagnosticService,
	locker runlock.Locker,
	logger *zap.Logger,
) (*RunService, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if diagnostic == nil {
		return nil, fmt.Errorf("diagnostic service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RunService{
		dispatcher: dispatcher,
		diagnostic: diagnostic,
		locker:     locker,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// SetMetrics also hands the registry to the dispatcher and diagnostic service.
func (s *RunService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
	s.dispatcher.SetMetrics(metrics)
	s.diagnostic.SetMetrics(metrics)
}

// RunLive dispatches the reminders due on date, or today in the reference zone
// when date is nil. It returns domain.ErrRunInProgress when another run holds
// the lock for the same date.
func (s *RunService) RunLive(ctx context.Context, date *time.Time) (*domain.RunSummary, error) {
	ctx = s.withRunContext(ctx)
	log := observability.WithContextLogger(s.logger, ctx)
	mode := domain.RunModeLive.String()

	referenceDate := s.dispatcher.Today()
	if date != nil {
		referenceDate = domain.NormalizeDate(*date)
	}

	start := s.now()
	s.metrics.IncRunInFlight(mode)
	defer s.metrics.DecRunInFlight(mode)

	release, err := s.acquire(ctx, referenceDate)
	if err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			log.Warn("reminder run rejected, another run holds the lock",
				zap.String("date", domain.FormatDate(referenceDate)),
			)
			s.metrics.ObserveRun(mode, runResultLocked, s.now().Sub(start))
			return nil, err
		}
		log.Warn("run lock unavailable, continuing without it", zap.Error(err))
	}
	if release != nil {
		defer s.release(ctx, log, release)
	}

	summary, err := s.dispatcher.RunForDate(ctx, referenceDate)
	if err != nil {
		log.Error("reminder run failed", zap.Error(err))
		s.metrics.ObserveRun(mode, runResultError, s.now().Sub(start))
		return nil, err
	}

	s.metrics.ObserveRun(mode, runResultOK, s.now().Sub(start))
	return summary, nil
}

// RunDiagnostic sends the synthetic connectivity messages. It does not take
// the run lock.
func (s *RunService) RunDiagnostic(ctx context.Context) *domain.DiagnosticResult {
	ctx = s.withRunContext(ctx)
	mode := domain.RunModeDiagnostic.String()

	start := s.now()
	s.metrics.IncRunInFlight(mode)
	defer s.metrics.DecRunInFlight(mode)

	result := s.diagnostic.Run(ctx)
	s.metrics.ObserveRun(mode, runResultOK, s.now().Sub(start))
	return result
}

func (s *RunService) withRunContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	runID, ok := observability.RunIDFromContext(ctx)
	if !ok {
		runID = s.newID()
		ctx = observability.WithRunID(ctx, runID)
	}
	if _, ok := observability.CorrelationIDFromContext(ctx); !ok {
		ctx = observability.WithCorrelationID(ctx, runID)
	}
	return ctx
}

func (s *RunService) acquire(ctx context.Context, referenceDate time.Time) (runlock.Release, error) {
	if s.locker == nil {
		return nil, nil
	}
	return s.locker.Acquire(ctx, domain.FormatDate(referenceDate))
}

func (s *RunService) release(ctx context.Context, log *zap.Logger, release runlock.Release) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseTimeout)
	defer cancel()

	if err := release(releaseCtx); err != nil {
		log.Warn("failed to release run lock", zap.Error(err))
	}
}
