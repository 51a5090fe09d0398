package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

const (
	SMSProviderNotificationAPI = "notificationapi"
	SMSProviderTwilio          = "twilio"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	APIPort     int    `env:"API_PORT,default=8080"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	ReferenceTimeZone string `env:"REFERENCE_TIME_ZONE,default=Asia/Seoul"`
	ReminderLocale    string `env:"REMINDER_LOCALE,default=ko"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM,default=SubReminder <onboarding@resend.dev>"`

	SMSProvider                 string `env:"SMS_PROVIDER,default=notificationapi"`
	NotificationAPIClientID     string `env:"NOTIFICATIONAPI_CLIENT_ID"`
	NotificationAPIClientSecret string `env:"NOTIFICATIONAPI_CLIENT_SECRET"`
	NotificationAPIBaseURL      string `env:"NOTIFICATIONAPI_BASE_URL,default=https://api.notificationapi.com"`
	TwilioAccountSID            string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken             string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber            string `env:"TWILIO_FROM_NUMBER"`

	SupabaseURL        string `env:"SUPABASE_URL"`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_KEY"`

	TestMode        bool   `env:"TEST_MODE,default=false"`
	TestPhoneNumber string `env:"TEST_PHONE_NUMBER"`
	TestEmail       string `env:"TEST_EMAIL"`

	LegacyFlagsEnabled     bool   `env:"LEGACY_FLAGS_ENABLED,default=true"`
	RunLockTTLSeconds      int    `env:"RUN_LOCK_TTL_SECONDS,default=600"`
	RunSchedule            string `env:"RUN_SCHEDULE,default=0 9 * * *"`
	ProviderTimeoutSeconds int    `env:"PROVIDER_TIMEOUT_SECONDS,default=10"`
	WorkerPrefetch         int    `env:"WORKER_PREFETCH,default=1"`

	location *time.Location
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	loc, err := time.LoadLocation(strings.TrimSpace(cfg.ReferenceTimeZone))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: invalid REFERENCE_TIME_ZONE %q: %w", cfg.ReferenceTimeZone, err)
	}
	cfg.location = loc

	cfg.SMSProvider = strings.ToLower(strings.TrimSpace(cfg.SMSProvider))
	switch cfg.SMSProvider {
	case SMSProviderNotificationAPI, SMSProviderTwilio:
	default:
		return nil, fmt.Errorf("failed to load config: unsupported SMS_PROVIDER %q", cfg.SMSProvider)
	}

	return &cfg, nil
}

// Location is the zone in which "today" is evaluated.
func (c *Config) Location() *time.Location {
	if c == nil || c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) EmailConfigured() bool {
	return c != nil && strings.TrimSpace(c.ResendAPIKey) != ""
}

func (c *Config) SMSConfigured() bool {
	if c == nil {
		return false
	}
	switch c.SMSProvider {
	case SMSProviderTwilio:
		return nonBlank(c.TwilioAccountSID, c.TwilioAuthToken, c.TwilioFromNumber)
	default:
		return nonBlank(c.NotificationAPIClientID, c.NotificationAPIClientSecret)
	}
}

func (c *Config) IdentityConfigured() bool {
	return c != nil && nonBlank(c.SupabaseURL, c.SupabaseServiceKey)
}

func (c *Config) RunLockTTL() time.Duration {
	return time.Duration(c.RunLockTTLSeconds) * time.Second
}

func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSeconds) * time.Second
}

func nonBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}
