package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/kursadbilgin/renewal-reminder/internal/observability"
	"github.com/kursadbilgin/renewal-reminder/internal/provider"
	"github.com/kursadbilgin/renewal-reminder/internal/reminder"
	"github.com/kursadbilgin/renewal-reminder/internal/repository"
	"go.uber.org/zap"
)

// DiagnosticTargets are the fixed destinations of diagnostic runs.
type DiagnosticTargets struct {
	Email       string
	PhoneNumber string
}

func (t DiagnosticTargets) destination(channel domain.Channel) string {
	switch channel {
	case domain.ChannelEmail:
		return strings.TrimSpace(t.Email)
	case domain.ChannelSMS:
		return strings.TrimSpace(t.PhoneNumber)
	}
	return ""
}

// DiagnosticService sends one synthetic message per configured channel to the
// operator targets. It never reads subscriptions and never touches the dedup
// ledger; its log rows are marked as test runs.
type DiagnosticService struct {
	senders  *provider.Registry
	renderer *reminder.Renderer
	logs     repository.NotificationLogRepository
	targets  DiagnosticTargets
	location *time.Location
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
	newID    func() string
}

func NewDiagnosticService(
	senders *provider.Registry,
	renderer *reminder.Renderer,
	logs repository.NotificationLogRepository,
	targets DiagnosticTargets,
	location *time.Location,
	logger *zap.Logger,
) (*DiagnosticService, error) {
	if senders == nil {
		return nil, fmt.Errorf("sender registry is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if logs == nil {
		return nil, fmt.Errorf("notification log repository is required")
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DiagnosticService{
		senders:  senders,
		renderer: renderer,
		logs:     logs,
		targets:  targets,
		location: location,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

func (s *DiagnosticService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Run sends the diagnostic message on every channel and reports the outcome
// per channel. Failures are recorded, never returned.
func (s *DiagnosticService) Run(ctx context.Context) *domain.DiagnosticResult {
	ctx = context.WithoutCancel(ctx)
	log := observability.WithContextLogger(s.logger, ctx)
	today := domain.DateIn(s.now(), s.location)

	result := &domain.DiagnosticResult{
		Date:     today,
		Channels: make(map[domain.Channel]domain.DiagnosticStatus, len(domain.Channels())),
	}

	for _, channel := range domain.Channels() {
		result.Channels[channel] = s.runChannel(ctx, log, today, channel)
	}

	log.Info("diagnostic run finished",
		zap.String("date", domain.FormatDate(today)),
		zap.Any("channels", result.Channels),
	)
	return result
}

func (s *DiagnosticService) runChannel(
	ctx context.Context,
	log *zap.Logger,
	today time.Time,
	channel domain.Channel,
) domain.DiagnosticStatus {
	log = log.With(zap.String("channel", channel.String()))

	sender, ok := s.senders.Sender(channel)
	if !ok {
		log.Info("diagnostic channel not configured, skipping")
		return domain.DiagnosticStatusSkipped
	}
	to := s.targets.destination(channel)
	if to == "" {
		log.Info("diagnostic target missing, skipping")
		return domain.DiagnosticStatusSkipped
	}

	msg := s.renderer.RenderDiagnostic(channel, today)
	sendStart := s.now()
	resp, sendErr := safeSend(ctx, sender, provider.Message{
		Recipient: to,
		Subject:   msg.Subject,
		Body:      msg.Body,
	})
	s.metrics.ObserveReminderSendDuration(channel.String(), s.now().Sub(sendStart))

	entry := &domain.NotificationLog{
		ID:               s.newID(),
		SubscriptionName: domain.DiagnosticSubscriptionName,
		Channel:          channel,
		Recipient:        to,
		ReferenceDate:    today,
		TestRun:          true,
		CreatedAt:        s.now().UTC(),
	}
	applySendOutcome(entry, resp, sendErr)

	if err := s.logs.Create(ctx, entry); err != nil {
		log.Error("failed to record diagnostic attempt", zap.Error(err))
	}

	if sendErr != nil {
		log.Error("diagnostic send failed", zap.Error(sendErr))
		return domain.DiagnosticStatusFailed
	}
	log.Info("diagnostic message sent", zap.String("logId", entry.ID))
	return domain.DiagnosticStatusSent
}
