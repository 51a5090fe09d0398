package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/kursadbilgin/renewal-reminder/internal/queue"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultRunSchedule = "0 9 * * *"
	publishTimeout     = 10 * time.Second
)

// TriggerScheduler publishes one run message per cron tick. It carries no
// reminder logic; a live tick means "run for the date of this tick", pinned in
// the message so a late consumer still runs the right day.
type TriggerScheduler struct {
	publisher queue.Publisher
	cron      *cron.Cron
	schedule  cron.Schedule
	spec      string
	location  *time.Location
	mode      domain.RunMode
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewTriggerScheduler parses spec (five fields, or a descriptor such as
// @daily) in loc. With diagnostic set, ticks request diagnostic runs instead
// of live ones.
func NewTriggerScheduler(
	publisher queue.Publisher,
	spec string,
	loc *time.Location,
	diagnostic bool,
	logger *zap.Logger,
) (*TriggerScheduler, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = defaultRunSchedule
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid run schedule %q: %v", domain.ErrValidation, spec, err)
	}

	mode := domain.RunModeLive
	if diagnostic {
		mode = domain.RunModeDiagnostic
	}

	return &TriggerScheduler{
		publisher: publisher,
		cron:      cron.New(cron.WithParser(parser), cron.WithLocation(loc)),
		schedule:  schedule,
		spec:      spec,
		location:  loc,
		mode:      mode,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// Next reports the first tick strictly after t, evaluated in the reference zone.
func (s *TriggerScheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

// Start runs the cron loop until ctx is done.
func (s *TriggerScheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		if err := s.fire(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("run trigger failed", zap.Error(err))
		}
	}))
	s.cron.Start()
	s.logger.Info("run trigger scheduler started",
		zap.String("schedule", s.spec),
		zap.String("mode", s.mode.String()),
		zap.Time("next", s.Next(time.Now())),
	)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("run trigger scheduler stopped")
	return nil
}

func (s *TriggerScheduler) fire(ctx context.Context) error {
	runID := s.newID()
	msg := queue.RunMessage{
		RunID:         runID,
		CorrelationID: runID,
		Mode:          s.mode,
	}
	if s.mode == domain.RunModeLive {
		msg.Date = domain.FormatDate(domain.DateIn(s.now(), s.location))
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(publishCtx, queue.RunQueueName, msg); err != nil {
		return fmt.Errorf("failed to publish run trigger %s: %w", runID, err)
	}

	s.logger.Info("run trigger published",
		zap.String("runId", runID),
		zap.String("mode", s.mode.String()),
		zap.String("date", msg.Date),
	)
	return nil
}
