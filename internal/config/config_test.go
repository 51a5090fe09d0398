package config

import (
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "host=localhost user=test password=test dbname=test port=5432 sslmode=disable")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", cfg.APIPort)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.Location().String() != "Asia/Seoul" {
		t.Errorf("Location = %s, want Asia/Seoul", cfg.Location())
	}
	if cfg.ReminderLocale != "ko" {
		t.Errorf("ReminderLocale = %s, want ko", cfg.ReminderLocale)
	}
	if cfg.EmailFrom != "SubReminder <onboarding@resend.dev>" {
		t.Errorf("EmailFrom = %q", cfg.EmailFrom)
	}
	if cfg.SMSProvider != SMSProviderNotificationAPI {
		t.Errorf("SMSProvider = %s, want notificationapi", cfg.SMSProvider)
	}
	if cfg.RunSchedule != "0 9 * * *" {
		t.Errorf("RunSchedule = %q, want 0 9 * * *", cfg.RunSchedule)
	}
	if !cfg.LegacyFlagsEnabled {
		t.Error("LegacyFlagsEnabled = false, want true")
	}
	if cfg.TestMode {
		t.Error("TestMode = true, want false")
	}
	if cfg.RunLockTTL().Minutes() != 10 {
		t.Errorf("RunLockTTL = %s, want 10m", cfg.RunLockTTL())
	}
	if cfg.EmailConfigured() || cfg.SMSConfigured() || cfg.IdentityConfigured() {
		t.Error("no provider should be configured by default")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REFERENCE_TIME_ZONE", "UTC")
	t.Setenv("TEST_MODE", "true")
	t.Setenv("RESEND_API_KEY", "re_test")
	t.Setenv("SMS_PROVIDER", "Twilio")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_FROM_NUMBER", "+15550001111")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", cfg.APIPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.Location().String() != "UTC" {
		t.Errorf("Location = %s, want UTC", cfg.Location())
	}
	if !cfg.TestMode {
		t.Error("TestMode = false, want true")
	}
	if !cfg.EmailConfigured() {
		t.Error("EmailConfigured() = false, want true")
	}
	if cfg.SMSProvider != SMSProviderTwilio || !cfg.SMSConfigured() {
		t.Errorf("SMSProvider = %s, SMSConfigured() = %v", cfg.SMSProvider, cfg.SMSConfigured())
	}
}

func TestLoad_SMSConfiguredRequiresBothNotificationAPICredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NOTIFICATIONAPI_CLIENT_ID", "client")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SMSConfigured() {
		t.Fatal("SMSConfigured() = true with missing secret")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_DSN", "host=localhost")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
}

func TestLoad_InvalidTimeZone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REFERENCE_TIME_ZONE", "Mars/Olympus_Mons")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid time zone, got nil")
	}
}

func TestLoad_InvalidSMSProvider(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SMS_PROVIDER", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid SMS provider, got nil")
	}
}
