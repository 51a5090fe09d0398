package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and run execution.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	remindersSentTotal   *prometheus.CounterVec
	remindersFailedTotal *prometheus.CounterVec
	remindersSkipped     *prometheus.CounterVec
	reminderSendDuration *prometheus.HistogramVec
	runsTotal            *prometheus.CounterVec
	runDuration          *prometheus.HistogramVec
	runsInflight         *prometheus.GaugeVec
	lastRunSuccess       *prometheus.GaugeVec
}

const metricsNamespace = "renewal_reminder"

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		remindersSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reminders_sent_total",
				Help:      "Total number of reminders accepted by a provider.",
			},
			[]string{"channel"},
		),
		remindersFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reminders_failed_total",
				Help:      "Total number of reminder attempts that failed, by reason.",
			},
			[]string{"channel", "reason"},
		),
		remindersSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reminders_skipped_total",
				Help:      "Total number of candidates skipped because they were already attempted.",
			},
			[]string{"channel"},
		),
		reminderSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "reminder_send_duration_seconds",
				Help:      "Provider send duration in seconds grouped by channel.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"channel"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "runs_total",
				Help:      "Total number of reminder runs by mode and result.",
			},
			[]string{"mode", "result"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "run_duration_seconds",
				Help:      "Reminder run duration in seconds grouped by mode.",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"mode"},
		),
		runsInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "runs_inflight",
				Help:      "Current number of reminder runs executing in this process.",
			},
			[]string{"mode"},
		),
		lastRunSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "last_successful_run_timestamp_seconds",
				Help:      "Unix time of the last run that completed without a fatal error. Alert when it falls a day behind.",
			},
			[]string{"mode"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.remindersSentTotal,
		m.remindersFailedTotal,
		m.remindersSkipped,
		m.reminderSendDuration,
		m.runsTotal,
		m.runDuration,
		m.runsInflight,
		m.lastRunSuccess,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncReminderSent(channel string) {
	if m == nil {
		return
	}
	m.remindersSentTotal.WithLabelValues(normalizeLabel(channel)).Inc()
}

func (m *Metrics) IncReminderFailed(channel string, reason string) {
	if m == nil {
		return
	}
	m.remindersFailedTotal.WithLabelValues(normalizeLabel(channel), normalizeLabel(reason)).Inc()
}

func (m *Metrics) IncReminderSkipped(channel string) {
	if m == nil {
		return
	}
	m.remindersSkipped.WithLabelValues(normalizeLabel(channel)).Inc()
}

func (m *Metrics) ObserveReminderSendDuration(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.reminderSendDuration.WithLabelValues(normalizeLabel(channel)).Observe(seconds)
}

func (m *Metrics) IncRunInFlight(mode string) {
	if m == nil {
		return
	}
	m.runsInflight.WithLabelValues(normalizeLabel(mode)).Inc()
}

func (m *Metrics) DecRunInFlight(mode string) {
	if m == nil {
		return
	}
	m.runsInflight.WithLabelValues(normalizeLabel(mode)).Dec()
}

// ObserveRun records a finished run. result is one of ok, error or locked.
func (m *Metrics) ObserveRun(mode string, result string, duration time.Duration) {
	if m == nil {
		return
	}
	modeLabel := normalizeLabel(mode)
	resultLabel := normalizeLabel(result)
	m.runsTotal.WithLabelValues(modeLabel, resultLabel).Inc()
	if duration >= 0 {
		m.runDuration.WithLabelValues(modeLabel).Observe(duration.Seconds())
	}
	if resultLabel == "ok" {
		m.lastRunSuccess.WithLabelValues(modeLabel).SetToCurrentTime()
	}
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
