package bootstrap

import (
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/kursadbilgin/renewal-reminder/internal/config"
	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/kursadbilgin/renewal-reminder/internal/observability"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestNewSenders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       config.Config
		wantEmail bool
		wantSMS   string
	}{
		{
			name: "nothing configured",
			cfg:  config.Config{SMSProvider: config.SMSProviderNotificationAPI},
		},
		{
			name: "resend and notificationapi",
			cfg: config.Config{
				ResendAPIKey:                "re_test",
				EmailFrom:                   "SubReminder <onboarding@resend.dev>",
				SMSProvider:                 config.SMSProviderNotificationAPI,
				NotificationAPIClientID:     "client",
				NotificationAPIClientSecret: "secret",
			},
			wantEmail: true,
			wantSMS:   "*provider.NotificationAPISMSSender",
		},
		{
			name: "twilio selected",
			cfg: config.Config{
				SMSProvider:      config.SMSProviderTwilio,
				TwilioAccountSID: "AC123",
				TwilioAuthToken:  "token",
				TwilioFromNumber: "+15005550006",
			},
			wantSMS: "*provider.TwilioSMSSender",
		},
		{
			name: "twilio selected but notificationapi credentials only",
			cfg: config.Config{
				SMSProvider:                 config.SMSProviderTwilio,
				NotificationAPIClientID:     "client",
				NotificationAPIClientSecret: "secret",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := tt.cfg
			registry, err := NewSenders(&cfg)
			if err != nil {
				t.Fatalf("NewSenders() error = %v", err)
			}

			if _, ok := registry.Sender(domain.ChannelEmail); ok != tt.wantEmail {
				t.Fatalf("email configured = %v, want %v", ok, tt.wantEmail)
			}

			sms, ok := registry.Sender(domain.ChannelSMS)
			got := ""
			if ok {
				got = fmt.Sprintf("%T", sms)
			}
			if got != tt.wantSMS {
				t.Fatalf("sms sender = %q, want %q", got, tt.wantSMS)
			}
		})
	}
}

func TestNewDirectory(t *testing.T) {
	t.Parallel()

	directory, err := NewDirectory(&config.Config{})
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}
	if directory != nil {
		t.Fatalf("NewDirectory() = %T, want nil without supabase settings", directory)
	}

	directory, err = NewDirectory(&config.Config{
		SupabaseURL:        "https://project.supabase.co",
		SupabaseServiceKey: "service-key",
	})
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}
	if directory == nil {
		t.Fatal("NewDirectory() = nil, want cached supabase directory")
	}
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	db, err := gorm.Open(postgres.Open("host=127.0.0.1 port=1 user=test dbname=test sslmode=disable"), &gorm.Config{
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	core, recorded := observer.New(zapcore.InfoLevel)
	cfg := config.Config{
		ReminderLocale:              "en",
		ResendAPIKey:                "re_test",
		EmailFrom:                   "SubReminder <onboarding@resend.dev>",
		SMSProvider:                 config.SMSProviderNotificationAPI,
		NotificationAPIClientID:     "client",
		NotificationAPIClientSecret: "secret",
		RunLockTTLSeconds:           60,
		LegacyFlagsEnabled:          true,
	}

	engine, err := NewEngine(&cfg, db, rdb, observability.NewMetrics(), zap.New(core))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if engine.Runs == nil || engine.Logs == nil {
		t.Fatalf("NewEngine() = %+v, want run service and log store", engine)
	}

	entries := recorded.FilterMessage("reminder engine ready").All()
	if len(entries) != 1 {
		t.Fatalf("ready log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["run_lock"] != true || fields["identity_directory"] != false || fields["locale"] != "en" {
		t.Fatalf("ready log fields = %v", fields)
	}
	channels, _ := fields["channels"].([]any)
	if len(channels) != 2 {
		t.Fatalf("channels = %v, want email and sms", fields["channels"])
	}
}

func TestNewEngineValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewEngine(nil, nil, nil, nil, nil); err == nil {
		t.Fatal("NewEngine() expected error for nil config")
	}
	if _, err := NewEngine(&config.Config{}, nil, nil, nil, nil); err == nil {
		t.Fatal("NewEngine() expected error for nil database")
	}

	db, err := gorm.Open(postgres.Open("host=127.0.0.1 port=1 user=test dbname=test sslmode=disable"), &gorm.Config{
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	if _, err := NewEngine(&config.Config{ReminderLocale: "fr"}, db, nil, nil, nil); err == nil {
		t.Fatal("NewEngine() expected error for unsupported locale")
	}
}
