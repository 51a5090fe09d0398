// Package bootstrap assembles the reminder engine from configuration. Both
// binaries share it so the API and the worker run the exact same engine.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/kursadbilgin/renewal-reminder/internal/config"
	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/kursadbilgin/renewal-reminder/internal/identity"
	infraredis "github.com/kursadbilgin/renewal-reminder/internal/infra/redis"
	"github.com/kursadbilgin/renewal-reminder/internal/observability"
	"github.com/kursadbilgin/renewal-reminder/internal/provider"
	"github.com/kursadbilgin/renewal-reminder/internal/reminder"
	"github.com/kursadbilgin/renewal-reminder/internal/repository"
	"github.com/kursadbilgin/renewal-reminder/internal/runlock"
	"github.com/kursadbilgin/renewal-reminder/internal/service"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const directoryCacheTTL = 10 * time.Minute

// Engine holds the wired run entry point and the audit log store.
type Engine struct {
	Runs *service.RunService
	Logs *repository.GormNotificationLogRepo
}

// NewEngine wires repositories, senders, the identity directory and the run
// lock. rdb may be nil, in which case runs are not serialized by a lock.
func NewEngine(
	cfg *config.Config,
	db *gorm.DB,
	rdb *goredis.Client,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	locale, err := reminder.ParseLocale(cfg.ReminderLocale)
	if err != nil {
		return nil, err
	}
	renderer := reminder.NewRenderer(locale)

	senders, err := NewSenders(cfg)
	if err != nil {
		return nil, err
	}
	directory, err := NewDirectory(cfg)
	if err != nil {
		return nil, err
	}

	subscriptions := repository.NewGormSubscriptionRepo(db)
	profiles := repository.NewGormProfileRepo(db)
	logs := repository.NewGormNotificationLogRepo(db)

	dispatcher, err := service.NewDispatcher(
		subscriptions,
		profiles,
		directory,
		logs,
		senders,
		renderer,
		service.DispatcherConfig{
			Location:    cfg.Location(),
			LegacyRules: cfg.LegacyFlagsEnabled,
		},
		logger.Named("dispatcher"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build dispatcher: %w", err)
	}

	diagnostic, err := service.NewDiagnosticService(
		senders,
		renderer,
		logs,
		service.DiagnosticTargets{
			Email:       cfg.TestEmail,
			PhoneNumber: cfg.TestPhoneNumber,
		},
		cfg.Location(),
		logger.Named("diagnostic"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build diagnostic service: %w", err)
	}

	var locker runlock.Locker
	if rdb != nil {
		lock, err := infraredis.NewRedisRunLock(rdb, cfg.RunLockTTL())
		if err != nil {
			return nil, fmt.Errorf("failed to build run lock: %w", err)
		}
		locker = lock
	}

	runs, err := service.NewRunService(dispatcher, diagnostic, locker, logger.Named("runs"))
	if err != nil {
		return nil, fmt.Errorf("failed to build run service: %w", err)
	}
	runs.SetMetrics(metrics)

	logger.Info("reminder engine ready",
		zap.Strings("channels", lo.Map(senders.Channels(), func(ch domain.Channel, _ int) string { return ch.String() })),
		zap.Bool("identity_directory", directory != nil),
		zap.Bool("run_lock", locker != nil),
		zap.String("locale", string(locale)),
		zap.String("reference_zone", cfg.Location().String()),
	)

	return &Engine{Runs: runs, Logs: logs}, nil
}

// NewSenders builds one sender per configured channel. Unconfigured channels
// are left out of the registry and are skipped by every run.
func NewSenders(cfg *config.Config) (*provider.Registry, error) {
	var senders []provider.Sender

	if cfg.EmailConfigured() {
		email, err := provider.NewResendEmailSender(cfg.ResendAPIKey, cfg.EmailFrom)
		if err != nil {
			return nil, fmt.Errorf("failed to build email sender: %w", err)
		}
		senders = append(senders, email)
	}

	if cfg.SMSConfigured() {
		sms, err := newSMSSender(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build sms sender: %w", err)
		}
		senders = append(senders, sms)
	}

	return provider.NewRegistry(senders...), nil
}

func newSMSSender(cfg *config.Config) (provider.Sender, error) {
	switch cfg.SMSProvider {
	case config.SMSProviderTwilio:
		return provider.NewTwilioSMSSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	case config.SMSProviderNotificationAPI:
		return provider.NewNotificationAPISMSSender(provider.NotificationAPIConfig{
			BaseURL:      cfg.NotificationAPIBaseURL,
			ClientID:     cfg.NotificationAPIClientID,
			ClientSecret: cfg.NotificationAPIClientSecret,
			Timeout:      cfg.ProviderTimeout(),
		})
	default:
		return nil, fmt.Errorf("unsupported sms provider %q", cfg.SMSProvider)
	}
}

// NewDirectory returns the cached Supabase directory, or nil when identity is
// not configured and stored profile e-mails are used as-is.
func NewDirectory(cfg *config.Config) (identity.Directory, error) {
	if !cfg.IdentityConfigured() {
		return nil, nil
	}

	supabase, err := identity.NewSupabaseDirectory(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build identity directory: %w", err)
	}
	return identity.NewCachedDirectory(supabase, directoryCacheTTL), nil
}
