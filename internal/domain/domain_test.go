package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseChannelFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Channel
		wantErr bool
	}{
		{name: "lowercase", input: "email", want: ChannelEmail},
		{name: "uppercase with spaces", input: " SMS ", want: ChannelSMS},
		{name: "unsupported", input: "push", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseChannelFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseChannelFromString() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseChannelFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseChannelFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseLogStatusFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseLogStatusFromString(" Failed ")
	if err != nil {
		t.Fatalf("ParseLogStatusFromString() unexpected error = %v", err)
	}
	if got != LogStatusFailed {
		t.Fatalf("ParseLogStatusFromString() = %s, want %s", got, LogStatusFailed)
	}

	_, err = ParseLogStatusFromString("skipped")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseLogStatusFromString() error = %v, want ErrValidation", err)
	}
}

func TestParseRunModeFromString(t *testing.T) {
	t.Parallel()

	got, err := ParseRunModeFromString("DIAGNOSTIC")
	if err != nil {
		t.Fatalf("ParseRunModeFromString() unexpected error = %v", err)
	}
	if got != RunModeDiagnostic {
		t.Fatalf("ParseRunModeFromString() = %s, want %s", got, RunModeDiagnostic)
	}

	if _, err := ParseRunModeFromString("dry-run"); !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseRunModeFromString() error = %v, want ErrValidation", err)
	}
}

func TestDateIn(t *testing.T) {
	t.Parallel()

	seoul, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 2026-02-21T16:30Z is already 2026-02-22 in Seoul.
	instant := time.Date(2026, 2, 21, 16, 30, 0, 0, time.UTC)

	if got := FormatDate(DateIn(instant, seoul)); got != "2026-02-22" {
		t.Fatalf("DateIn(seoul) = %s, want 2026-02-22", got)
	}
	if got := FormatDate(DateIn(instant, time.UTC)); got != "2026-02-21" {
		t.Fatalf("DateIn(utc) = %s, want 2026-02-21", got)
	}
	if got := DateIn(instant, nil); !got.Equal(time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("DateIn(nil) = %v, want 2026-02-21 UTC", got)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	got, err := ParseDate(" 2026-03-01 ")
	if err != nil {
		t.Fatalf("ParseDate() unexpected error = %v", err)
	}
	if !got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParseDate() = %v, want 2026-03-01", got)
	}

	if _, err := ParseDate("03/01/2026"); !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseDate() error = %v, want ErrValidation", err)
	}
}

func TestReminderRuleValidate(t *testing.T) {
	t.Parallel()

	base := ReminderRule{
		SubscriptionID: "sub-1",
		OffsetDays:     7,
		Channel:        ChannelEmail,
		Enabled:        true,
	}

	tests := []struct {
		name    string
		mutate  func(*ReminderRule)
		wantErr bool
	}{
		{name: "valid rule", mutate: func(r *ReminderRule) {}},
		{name: "same-day offset", mutate: func(r *ReminderRule) { r.OffsetDays = 0 }},
		{name: "negative offset", mutate: func(r *ReminderRule) { r.OffsetDays = -1 }, wantErr: true},
		{name: "missing subscription", mutate: func(r *ReminderRule) { r.SubscriptionID = " " }, wantErr: true},
		{name: "invalid channel", mutate: func(r *ReminderRule) { r.Channel = Channel("push") }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			current := base
			tt.mutate(&current)

			err := current.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
		})
	}
}

func TestRecipientProfileContactFor(t *testing.T) {
	t.Parallel()

	phone := " +821012345678 "
	blank := "  "

	profile := &RecipientProfile{UserID: "u1", Email: "user@example.com", PhoneNumber: &phone}
	if got, ok := profile.ContactFor(ChannelEmail); !ok || got != "user@example.com" {
		t.Fatalf("ContactFor(email) = %q, %v", got, ok)
	}
	if got, ok := profile.ContactFor(ChannelSMS); !ok || got != "+821012345678" {
		t.Fatalf("ContactFor(sms) = %q, %v", got, ok)
	}

	noPhone := &RecipientProfile{UserID: "u2", Email: "user@example.com", PhoneNumber: &blank}
	if _, ok := noPhone.ContactFor(ChannelSMS); ok {
		t.Fatal("blank phone number should not be a usable contact")
	}

	noEmail := &RecipientProfile{UserID: "u3"}
	if _, ok := noEmail.ContactFor(ChannelEmail); ok {
		t.Fatal("missing email should not be a usable contact")
	}

	var nilProfile *RecipientProfile
	if _, ok := nilProfile.ContactFor(ChannelEmail); ok {
		t.Fatal("nil profile should not have contacts")
	}
}

func TestDeliveryKey(t *testing.T) {
	t.Parallel()

	seoul := time.FixedZone("KST", 9*60*60)
	key := NewDeliveryKey(" sub-1 ", ChannelSMS, time.Date(2026, 2, 22, 23, 59, 0, 0, seoul), 7)

	if err := key.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}
	if got := key.String(); got != "sub-1/sms/2026-02-22/7" {
		t.Fatalf("String() = %q, want sub-1/sms/2026-02-22/7", got)
	}

	same := NewDeliveryKey("sub-1", ChannelSMS, time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC), 7)
	if key != same {
		t.Fatalf("keys for the same calendar date should be equal: %v vs %v", key, same)
	}

	if err := (DeliveryKey{Channel: ChannelSMS}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
}

func TestNotificationLogKey(t *testing.T) {
	t.Parallel()

	subID := "sub-1"
	entry := &NotificationLog{
		SubscriptionID: &subID,
		Channel:        ChannelEmail,
		ReferenceDate:  time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC),
		OffsetDays:     7,
	}

	key, ok := entry.Key()
	if !ok {
		t.Fatal("real log row should expose a delivery key")
	}
	if key.String() != "sub-1/email/2026-02-22/7" {
		t.Fatalf("Key() = %s", key)
	}

	entry.TestRun = true
	if _, ok := entry.Key(); ok {
		t.Fatal("diagnostic log row should not expose a delivery key")
	}
}

func TestSubscriptionDisplayName(t *testing.T) {
	t.Parallel()

	plan := "Premium"
	sub := &Subscription{ServiceName: "Netflix", PlanName: &plan, Price: decimal.NewFromInt(17000), Status: SubscriptionStatusActive}
	if got := sub.DisplayName(); got != "Netflix (Premium)" {
		t.Fatalf("DisplayName() = %q", got)
	}
	if !sub.IsActive() {
		t.Fatal("IsActive() = false, want true")
	}

	empty := ""
	sub.PlanName = &empty
	sub.Status = SubscriptionStatusPaused
	if got := sub.DisplayName(); got != "Netflix" {
		t.Fatalf("DisplayName() = %q", got)
	}
	if sub.IsActive() {
		t.Fatal("IsActive() = true for paused subscription")
	}
}
