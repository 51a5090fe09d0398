package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/kursadbilgin/renewal-reminder/internal/identity"
	"github.com/kursadbilgin/renewal-reminder/internal/observability"
	"github.com/kursadbilgin/renewal-reminder/internal/provider"
	"github.com/kursadbilgin/renewal-reminder/internal/reminder"
	"github.com/kursadbilgin/renewal-reminder/internal/repository"
	"go.uber.org/zap"
)

type candidateOutcome int

const (
	outcomeIgnored candidateOutcome = iota
	outcomeSkipped
	outcomeSent
	outcomeFailed
)

// DispatcherConfig holds the run-wide settings of the dispatcher.
type DispatcherConfig struct {
	// Location is the zone in which "today" is evaluated. Nil means UTC.
	Location *time.Location
	// LegacyRules enables implicit rules built from the per-subscription
	// notify flags for subscriptions without explicit rules.
	LegacyRules bool
}

// Dispatcher walks the candidate set for one reference date, sending each due
// reminder at most once and recording every attempt.
type Dispatcher struct {
	subscriptions repository.SubscriptionRepository
	profiles      repository.ProfileRepository
	directory     identity.Directory
	logs          repository.NotificationLogRepository
	dedup         *DedupGuard
	senders       *provider.Registry
	renderer      *reminder.Renderer
	cfg           DispatcherConfig
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time
	newID         func() string
}

func NewDispatcher(
	subscriptions repository.SubscriptionRepository,
	profiles repository.ProfileRepository,
	directory identity.Directory,
	logs repository.NotificationLogRepository,
	senders *provider.Registry,
	renderer *reminder.Renderer,
	cfg DispatcherConfig,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription repository is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile repository is required")
	}
	if senders == nil {
		return nil, fmt.Errorf("sender registry is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	dedup, err := NewDedupGuard(logs)
	if err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		subscriptions: subscriptions,
		profiles:      profiles,
		directory:     directory,
		logs:          logs,
		dedup:         dedup,
		senders:       senders,
		renderer:      renderer,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
		newID:         uuid.NewString,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Today is the current calendar date in the reference zone.
func (d *Dispatcher) Today() time.Time {
	return domain.DateIn(d.now(), d.cfg.Location)
}

// Run dispatches the reminders due today.
func (d *Dispatcher) Run(ctx context.Context) (*domain.RunSummary, error) {
	return d.RunForDate(ctx, d.Today())
}

// RunForDate dispatches the reminders due on referenceDate. Only a failure to
// read the candidate set is returned; per-candidate failures are recorded and
// counted. The walk ignores cancellation of ctx once started.
func (d *Dispatcher) RunForDate(ctx context.Context, referenceDate time.Time) (*domain.RunSummary, error) {
	ctx = context.WithoutCancel(ctx)
	log := observability.WithContextLogger(d.logger, ctx)
	ref := domain.NormalizeDate(referenceDate)

	subscriptions, err := d.subscriptions.ListActiveWithRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	log.Info("reminder run started",
		zap.String("date", domain.FormatDate(ref)),
		zap.Int("subscriptions", len(subscriptions)),
		zap.Strings("channels", channelNames(d.senders.Channels())),
	)

	summary := &domain.RunSummary{Date: ref}
	recipients := newRecipientResolver(d.profiles, d.directory)

	for i := range subscriptions {
		sub := subscriptions[i]
		if !sub.IsActive() {
			continue
		}

		for _, rule := range reminder.EffectiveRules(sub, d.cfg.LegacyRules) {
			switch d.dispatchCandidate(ctx, log, recipients, ref, sub, rule) {
			case outcomeSent:
				summary.Sent++
			case outcomeSkipped:
				summary.Skipped++
			case outcomeFailed:
				summary.Errors++
			}
		}
	}

	log.Info("reminder run finished",
		zap.String("date", domain.FormatDate(ref)),
		zap.Int("sent", summary.Sent),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
	)

	return summary, nil
}

func (d *Dispatcher) dispatchCandidate(
	ctx context.Context,
	log *zap.Logger,
	recipients *recipientResolver,
	ref time.Time,
	sub domain.Subscription,
	rule domain.ReminderRule,
) candidateOutcome {
	channel := rule.Channel.String()
	log = log.With(
		zap.String("subscriptionId", sub.ID),
		zap.String("ruleId", rule.ID),
		zap.String("channel", channel),
		zap.Int("offsetDays", rule.OffsetDays),
	)

	sender, ok := d.senders.Sender(rule.Channel)
	if !ok {
		return outcomeIgnored
	}

	if !reminder.IsDue(ref, sub.RenewalDate, rule.OffsetDays) {
		return outcomeIgnored
	}

	profile, lookupErr := recipients.Resolve(ctx, sub.UserID)
	contact, ok := profile.ContactFor(rule.Channel)
	if !ok {
		if lookupErr != nil {
			log.Warn("recipient lookup failed, candidate not attempted", zap.Error(lookupErr))
		} else {
			log.Debug("no contact for channel, candidate not attempted")
		}
		return outcomeIgnored
	}

	key := domain.NewDeliveryKey(sub.ID, rule.Channel, ref, rule.OffsetDays)
	attempted, err := d.dedup.AlreadyAttempted(ctx, key)
	if err != nil {
		log.Error("dedup lookup failed, candidate not attempted", zap.Error(err))
		d.metrics.IncReminderFailed(channel, "dedup_lookup")
		return outcomeFailed
	}
	if attempted {
		log.Info("reminder already attempted, skipping", zap.String("deliveryKey", key.String()))
		d.metrics.IncReminderSkipped(channel)
		return outcomeSkipped
	}

	msg := d.renderer.Render(reminder.RenderInput{
		Subscription: sub,
		Rule:         rule,
		Recipient:    *profile,
	})

	sendStart := d.now()
	resp, sendErr := safeSend(ctx, sender, provider.Message{
		Recipient: contact,
		UserID:    sub.UserID,
		Subject:   msg.Subject,
		Body:      msg.Body,
	})
	d.metrics.ObserveReminderSendDuration(channel, d.now().Sub(sendStart))

	subscriptionID := sub.ID
	entry := &domain.NotificationLog{
		ID:               d.newID(),
		UserID:           sub.UserID,
		SubscriptionID:   &subscriptionID,
		SubscriptionName: sub.ServiceName,
		Channel:          rule.Channel,
		Recipient:        contact,
		ReferenceDate:    ref,
		OffsetDays:       rule.OffsetDays,
		CreatedAt:        d.now().UTC(),
	}
	applySendOutcome(entry, resp, sendErr)

	if err := d.logs.Create(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrDuplicateAttempt) {
			log.Warn("concurrent run recorded this reminder first, counting as skipped",
				zap.String("deliveryKey", key.String()),
			)
			d.metrics.IncReminderSkipped(channel)
			return outcomeSkipped
		}
		log.Error("failed to record reminder attempt",
			zap.String("deliveryKey", key.String()),
			zap.String("status", entry.Status.String()),
			zap.Error(err),
		)
	}

	if sendErr != nil {
		log.Error("reminder send failed", zap.Error(sendErr))
		d.metrics.IncReminderFailed(channel, provider.FailureReason(sendErr))
		return outcomeFailed
	}

	log.Info("reminder sent", zap.String("logId", entry.ID))
	d.metrics.IncReminderSent(channel)
	return outcomeSent
}

// safeSend converts a panicking sender into a failed outcome.
func safeSend(ctx context.Context, sender provider.Sender, msg provider.Message) (resp *provider.ProviderResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("sender panicked: %v", r)
		}
	}()
	return sender.Send(ctx, msg)
}

func applySendOutcome(entry *domain.NotificationLog, resp *provider.ProviderResponse, sendErr error) {
	if sendErr != nil {
		entry.Status = domain.LogStatusFailed
		detail := strings.TrimSpace(sendErr.Error())
		if detail == "" {
			detail = "unknown send error"
		}
		entry.ErrorMessage = &detail
		return
	}

	entry.Status = domain.LogStatusSuccess
	if resp != nil {
		if id := strings.TrimSpace(resp.MessageID); id != "" {
			entry.ProviderMessageID = &id
		}
	}
}

func channelNames(channels []domain.Channel) []string {
	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, ch.String())
	}
	return names
}
