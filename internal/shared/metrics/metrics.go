package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Collaboration metrics
	InvitationsTotal   *prometheus.CounterVec
	WebhookEventsTotal *prometheus.CounterVec

	// Reminder metrics
	RemindersTotal    *prometheus.CounterVec
	ReminderRuns      prometheus.Counter
	ReminderRunLength prometheus.Histogram

	// Upstream metrics
	UpstreamRequestsTotal *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "crewboard"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		InvitationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "team",
				Name:      "invitations_total",
				Help:      "Member invitations by outcome",
			},
			[]string{"outcome"}, // direct_add, invite_sent, already_member, failed
		),
		WebhookEventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "team",
				Name:      "webhook_events_total",
				Help:      "Identity provider webhook deliveries by event and outcome",
			},
			[]string{"event", "outcome"},
		),

		RemindersTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reminders",
				Name:      "dispatch_total",
				Help:      "Deadline reminder dispatches by outcome",
			},
			[]string{"outcome"}, // sent, skipped, failed, duplicate
		),
		ReminderRuns: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reminders",
				Name:      "runs_total",
				Help:      "Total number of reminder scheduler runs",
			},
		),
		ReminderRunLength: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "reminders",
				Name:      "run_duration_seconds",
				Help:      "Reminder run duration in seconds",
				Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
			},
		),

		UpstreamRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "requests_total",
				Help:      "Calls to external gateways by gateway and result",
			},
			[]string{"gateway", "result"},
		),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordInvitation records an invitation outcome.
func (m *Metrics) RecordInvitation(outcome string) {
	if m == nil {
		return
	}
	m.InvitationsTotal.WithLabelValues(outcome).Inc()
}

// RecordWebhook records a webhook delivery.
func (m *Metrics) RecordWebhook(event, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordReminder records a single reminder dispatch outcome.
func (m *Metrics) RecordReminder(outcome string) {
	if m == nil {
		return
	}
	m.RemindersTotal.WithLabelValues(outcome).Inc()
}

// RecordReminderRun records a completed scheduler run.
func (m *Metrics) RecordReminderRun(duration time.Duration) {
	if m == nil {
		return
	}
	m.ReminderRuns.Inc()
	m.ReminderRunLength.Observe(duration.Seconds())
}

// RecordUpstream records a call to an external gateway.
func (m *Metrics) RecordUpstream(gateway string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.UpstreamRequestsTotal.WithLabelValues(gateway, result).Inc()
}
