package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/kursadbilgin/renewal-reminder/internal/provider"
	"github.com/kursadbilgin/renewal-reminder/internal/reminder"
	"go.uber.org/zap"
)

func TestDiagnosticServiceRun(t *testing.T) {
	t.Parallel()

	failingSMS := func(ctx context.Context, msg provider.Message) (*provider.ProviderResponse, error) {
		return nil, &provider.ProviderError{StatusCode: 401, Message: "invalid credentials"}
	}

	tests := []struct {
		name       string
		senders    func() []provider.Sender
		targets    DiagnosticTargets
		wantEmail  domain.DiagnosticStatus
		wantSMS    domain.DiagnosticStatus
		wantRows   int
		wantFailed int
	}{
		{
			name: "both channels sent",
			senders: func() []provider.Sender {
				return []provider.Sender{&fakeSender{channel: domain.ChannelEmail}, &fakeSender{channel: domain.ChannelSMS}}
			},
			targets:   DiagnosticTargets{Email: "ops@example.com", PhoneNumber: "+821012345678"},
			wantEmail: domain.DiagnosticStatusSent,
			wantSMS:   domain.DiagnosticStatusSent,
			wantRows:  2,
		},
		{
			name: "sms not configured",
			senders: func() []provider.Sender {
				return []provider.Sender{&fakeSender{channel: domain.ChannelEmail}}
			},
			targets:   DiagnosticTargets{Email: "ops@example.com", PhoneNumber: "+821012345678"},
			wantEmail: domain.DiagnosticStatusSent,
			wantSMS:   domain.DiagnosticStatusSkipped,
			wantRows:  1,
		},
		{
			name: "missing email target",
			senders: func() []provider.Sender {
				return []provider.Sender{&fakeSender{channel: domain.ChannelEmail}, &fakeSender{channel: domain.ChannelSMS}}
			},
			targets:   DiagnosticTargets{PhoneNumber: "+821012345678"},
			wantEmail: domain.DiagnosticStatusSkipped,
			wantSMS:   domain.DiagnosticStatusSent,
			wantRows:  1,
		},
		{
			name: "sms transport failure",
			senders: func() []provider.Sender {
				return []provider.Sender{&fakeSender{channel: domain.ChannelEmail}, &fakeSender{channel: domain.ChannelSMS, sendFn: failingSMS}}
			},
			targets:    DiagnosticTargets{Email: "ops@example.com", PhoneNumber: "+821012345678"},
			wantEmail:  domain.DiagnosticStatusSent,
			wantSMS:    domain.DiagnosticStatusFailed,
			wantRows:   2,
			wantFailed: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logs := &fakeLogRepo{}
			svc := newTestDiagnosticService(t, logs, tt.targets, tt.senders()...)

			result := svc.Run(context.Background())
			if got := result.Channels[domain.ChannelEmail]; got != tt.wantEmail {
				t.Fatalf("email status = %s, want %s", got, tt.wantEmail)
			}
			if got := result.Channels[domain.ChannelSMS]; got != tt.wantSMS {
				t.Fatalf("sms status = %s, want %s", got, tt.wantSMS)
			}
			if got := domain.FormatDate(result.Date); got != "2026-02-22" {
				t.Fatalf("date = %s, want 2026-02-22", got)
			}

			rows := logs.snapshot()
			if len(rows) != tt.wantRows {
				t.Fatalf("log rows = %d, want %d", len(rows), tt.wantRows)
			}

			failed := 0
			for _, row := range rows {
				if !row.TestRun {
					t.Fatal("diagnostic rows must be marked as test runs")
				}
				if row.SubscriptionID != nil {
					t.Fatalf("subscription id = %v, want nil", *row.SubscriptionID)
				}
				if row.UserID != "" {
					t.Fatalf("user id = %q, want none (stored as NULL)", row.UserID)
				}
				if row.SubscriptionName != domain.DiagnosticSubscriptionName {
					t.Fatalf("subscription name = %q, want %q", row.SubscriptionName, domain.DiagnosticSubscriptionName)
				}
				if row.OffsetDays != 0 {
					t.Fatalf("offset = %d, want 0", row.OffsetDays)
				}
				if row.Status == domain.LogStatusFailed {
					failed++
					if row.ErrorMessage == nil || !strings.Contains(*row.ErrorMessage, "invalid credentials") {
						t.Fatalf("error message = %v, want provider detail", row.ErrorMessage)
					}
				}
			}
			if failed != tt.wantFailed {
				t.Fatalf("failed rows = %d, want %d", failed, tt.wantFailed)
			}
		})
	}
}

func TestDiagnosticServiceBypassesDedup(t *testing.T) {
	t.Parallel()

	logs := &fakeLogRepo{
		existsFn: func(ctx context.Context, key domain.DeliveryKey) (bool, error) {
			t.Fatal("diagnostic runs must not consult the dedup ledger")
			return false, nil
		},
	}
	email := &fakeSender{channel: domain.ChannelEmail}
	svc := newTestDiagnosticService(t, logs, DiagnosticTargets{Email: "ops@example.com"}, email)

	svc.Run(context.Background())
	svc.Run(context.Background())

	if got := len(email.messages()); got != 2 {
		t.Fatalf("send calls = %d, want 2", got)
	}
	if got := len(logs.snapshot()); got != 2 {
		t.Fatalf("log rows = %d, want 2", got)
	}
	if got := email.messages()[0].Recipient; got != "ops@example.com" {
		t.Fatalf("recipient = %q, want ops@example.com", got)
	}
}

func TestDiagnosticServiceLogWriteFailureKeepsStatus(t *testing.T) {
	t.Parallel()

	logs := &fakeLogRepo{
		createFn: func(ctx context.Context, l *domain.NotificationLog) error {
			return errors.New("disk full")
		},
	}
	svc := newTestDiagnosticService(t, logs, DiagnosticTargets{Email: "ops@example.com"}, &fakeSender{channel: domain.ChannelEmail})

	result := svc.Run(context.Background())
	if got := result.Channels[domain.ChannelEmail]; got != domain.DiagnosticStatusSent {
		t.Fatalf("email status = %s, want sent", got)
	}
}

func newTestDiagnosticService(t *testing.T, logs *fakeLogRepo, targets DiagnosticTargets, senders ...provider.Sender) *DiagnosticService {
	t.Helper()

	svc, err := NewDiagnosticService(
		provider.NewRegistry(senders...),
		reminder.NewRenderer(reminder.LocaleKorean),
		logs,
		targets,
		time.FixedZone("KST", 9*60*60),
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("NewDiagnosticService() error = %v", err)
	}
	svc.now = func() time.Time { return time.Date(2026, 2, 21, 16, 30, 0, 0, time.UTC) }
	return svc
}
