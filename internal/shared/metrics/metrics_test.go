package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesIsolatedRegistry(t *testing.T) {
	// Two instances must not collide on registration.
	assert.NotPanics(t, func() {
		_ = New("test")
		_ = New("test")
	})
}

func TestRecordHTTPRequest(t *testing.T) {
	m := New("test")

	m.RecordHTTPRequest("GET", "/api/v1/teams/:id", 200, 15*time.Millisecond)
	m.RecordHTTPRequest("GET", "/api/v1/teams/:id", 200, 20*time.Millisecond)
	m.RecordHTTPRequest("GET", "/api/v1/teams/:id", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/teams/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/teams/:id", "404")))
}

func TestRecordDomainCounters(t *testing.T) {
	m := New("test")

	m.RecordInvitation("invite_sent")
	m.RecordWebhook("user.created", "member_added")
	m.RecordReminder("sent")
	m.RecordReminder("sent")
	m.RecordReminder("skipped")
	m.RecordReminderRun(2 * time.Second)
	m.RecordUpstream("push", nil)
	m.RecordUpstream("push", errors.New("503"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvitationsTotal.WithLabelValues("invite_sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookEventsTotal.WithLabelValues("user.created", "member_added")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RemindersTotal.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemindersTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReminderRuns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequestsTotal.WithLabelValues("push", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequestsTotal.WithLabelValues("push", "error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
		m.RecordInvitation("direct_add")
		m.RecordWebhook("user.created", "ignored")
		m.RecordReminder("sent")
		m.RecordReminderRun(time.Second)
		m.RecordUpstream("identity", nil)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New("test")
	m.RecordReminder("sent")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_reminders_dispatch_total")
}
