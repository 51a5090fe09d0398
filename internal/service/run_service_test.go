package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kursadbilgin/renewal-reminder/internal/domain"
	"github.com/kursadbilgin/renewal-reminder/internal/observability"
	"github.com/kursadbilgin/renewal-reminder/internal/provider"
	"github.com/kursadbilgin/renewal-reminder/internal/reminder"
	"github.com/kursadbilgin/renewal-reminder/internal/runlock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunServiceRunLiveUsesLockAndTagsRun(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	var lockedName string
	released := 0
	locker := &fakeLocker{
		acquireFn: func(ctx context.Context, name string) (runlock.Release, error) {
			lockedName = name
			return func(ctx context.Context) error {
				released++
				return nil
			}, nil
		},
	}

	svc := newTestRunService(t, locker, logger, &fakeSubscriptionRepo{subscriptions: []domain.Subscription{
		testSubscription("sub-1", "user-1", rule("sub-1", 7, domain.ChannelEmail)),
	}})
	svc.newID = func() string { return "run-1" }

	date := reference
	summary, err := svc.RunLive(context.Background(), &date)
	if err != nil {
		t.Fatalf("RunLive() error = %v", err)
	}
	assertSummary(t, summary, 1, 0, 0)

	if lockedName != "2026-02-22" {
		t.Fatalf("lock name = %q, want 2026-02-22", lockedName)
	}
	if released != 1 {
		t.Fatalf("release calls = %d, want 1", released)
	}

	finished := recorded.FilterMessage("reminder run finished").All()
	if len(finished) != 1 {
		t.Fatalf("run finished log entries = %d, want 1", len(finished))
	}
	fields := finished[0].ContextMap()
	if fields["runId"] != "run-1" {
		t.Fatalf("runId field = %v, want run-1", fields["runId"])
	}
	if fields["correlationId"] != "run-1" {
		t.Fatalf("correlationId field = %v, want run-1", fields["correlationId"])
	}
}

func TestRunServiceRunLiveKeepsCallerIDs(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zapcore.InfoLevel)
	svc := newTestRunService(t, nil, zap.New(core), &fakeSubscriptionRepo{})

	ctx := observability.WithRunID(context.Background(), "run-from-queue")
	ctx = observability.WithCorrelationID(ctx, "corr-1")

	if _, err := svc.RunLive(ctx, nil); err != nil {
		t.Fatalf("RunLive() error = %v", err)
	}

	started := recorded.FilterMessage("reminder run started").All()
	if len(started) != 1 {
		t.Fatalf("run started log entries = %d, want 1", len(started))
	}
	fields := started[0].ContextMap()
	if fields["runId"] != "run-from-queue" || fields["correlationId"] != "corr-1" {
		t.Fatalf("log fields = %v, want caller ids", fields)
	}
	if fields["date"] != "2026-02-22" {
		t.Fatalf("date field = %v, want today in reference zone", fields["date"])
	}
}

func TestRunServiceRunLiveRejectsWhenLocked(t *testing.T) {
	t.Parallel()

	locker := &fakeLocker{
		acquireFn: func(ctx context.Context, name string) (runlock.Release, error) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRunInProgress, name)
		},
	}
	listed := false
	subs := &fakeSubscriptionRepo{
		listFn: func(ctx context.Context) ([]domain.Subscription, error) {
			listed = true
			return nil, nil
		},
	}

	svc := newTestRunService(t, locker, zap.NewNop(), subs)
	metrics := observability.NewMetrics()
	svc.SetMetrics(metrics)

	_, err := svc.RunLive(context.Background(), nil)
	if !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("RunLive() error = %v, want ErrRunInProgress", err)
	}
	if listed {
		t.Fatal("candidates must not be loaded while another run holds the lock")
	}

	body := scrapeMetrics(t, metrics)
	if !strings.Contains(body, `renewal_reminder_runs_total{mode="live",result="locked"} 1`) {
		t.Fatalf("metrics missing locked run:\n%s", body)
	}
	if !strings.Contains(body, `renewal_reminder_runs_inflight{mode="live"} 0`) {
		t.Fatalf("metrics should report no inflight run:\n%s", body)
	}
}

func TestRunServiceRunLiveContinuesWhenLockUnavailable(t *testing.T) {
	t.Parallel()

	locker := &fakeLocker{
		acquireFn: func(ctx context.Context, name string) (runlock.Release, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}

	svc := newTestRunService(t, locker, zap.NewNop(), &fakeSubscriptionRepo{subscriptions: []domain.Subscription{
		testSubscription("sub-1", "user-1", rule("sub-1", 7, domain.ChannelEmail)),
	}})

	date := reference
	summary, err := svc.RunLive(context.Background(), &date)
	if err != nil {
		t.Fatalf("RunLive() error = %v", err)
	}
	assertSummary(t, summary, 1, 0, 0)
}

func TestRunServiceRunLiveFatalFailure(t *testing.T) {
	t.Parallel()

	released := false
	locker := &fakeLocker{
		acquireFn: func(ctx context.Context, name string) (runlock.Release, error) {
			return func(ctx context.Context) error {
				released = true
				return nil
			}, nil
		},
	}
	subs := &fakeSubscriptionRepo{
		listFn: func(ctx context.Context) ([]domain.Subscription, error) {
			return nil, errors.New("relation \"subscriptions\" does not exist")
		},
	}

	svc := newTestRunService(t, locker, zap.NewNop(), subs)
	metrics := observability.NewMetrics()
	svc.SetMetrics(metrics)

	if _, err := svc.RunLive(context.Background(), nil); err == nil {
		t.Fatal("RunLive() expected error, got nil")
	}
	if !released {
		t.Fatal("run lock should be released after a failed run")
	}

	body := scrapeMetrics(t, metrics)
	if !strings.Contains(body, `renewal_reminder_runs_total{mode="live",result="error"} 1`) {
		t.Fatalf("metrics missing failed run:\n%s", body)
	}
}

func TestRunServiceRunDiagnosticSkipsLock(t *testing.T) {
	t.Parallel()

	locker := &fakeLocker{
		acquireFn: func(ctx context.Context, name string) (runlock.Release, error) {
			t.Fatal("diagnostic runs must not take the run lock")
			return nil, nil
		},
	}

	svc := newTestRunService(t, locker, zap.NewNop(), &fakeSubscriptionRepo{})

	result := svc.RunDiagnostic(context.Background())
	if got := result.Channels[domain.ChannelEmail]; got != domain.DiagnosticStatusSent {
		t.Fatalf("email status = %s, want sent", got)
	}
	if got := result.Channels[domain.ChannelSMS]; got != domain.DiagnosticStatusSkipped {
		t.Fatalf("sms status = %s, want skipped", got)
	}
}

func newTestRunService(t *testing.T, locker runlock.Locker, logger *zap.Logger, subs *fakeSubscriptionRepo) *RunService {
	t.Helper()

	logs := &fakeLogRepo{}
	registry := provider.NewRegistry(&fakeSender{channel: domain.ChannelEmail})
	renderer := reminder.NewRenderer(reminder.LocaleEnglish)
	kst := time.FixedZone("KST", 9*60*60)
	now := func() time.Time { return time.Date(2026, 2, 21, 16, 30, 0, 0, time.UTC) }

	profiles := &fakeProfileRepo{profiles: map[string]domain.RecipientProfile{
		"user-1": {UserID: "user-1", Email: "minji@example.com"},
	}}

	dispatcher, err := NewDispatcher(subs, profiles, nil, logs, registry, renderer, DispatcherConfig{Location: kst}, logger)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	dispatcher.now = now

	diagnostic, err := NewDiagnosticService(registry, renderer, logs, DiagnosticTargets{Email: "ops@example.com"}, kst, logger)
	if err != nil {
		t.Fatalf("NewDiagnosticService() error = %v", err)
	}
	diagnostic.now = now

	svc, err := NewRunService(dispatcher, diagnostic, locker, logger)
	if err != nil {
		t.Fatalf("NewRunService() error = %v", err)
	}
	return svc
}

func scrapeMetrics(t *testing.T, metrics *observability.Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	return string(body)
}

type fakeLocker struct {
	acquireFn func(ctx context.Context, name string) (runlock.Release, error)
}

func (f *fakeLocker) Acquire(ctx context.Context, name string) (runlock.Release, error) {
	if f.acquireFn != nil {
		return f.acquireFn(ctx, name)
	}
	return func(ctx context.Context) error { return nil }, nil
}
