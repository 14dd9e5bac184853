package notification

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crewboard/server/internal/module/project"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newReminderRouter(d *Dispatcher) *gin.Engine {
	r := gin.New()
	NewHandler(d).RegisterRoutes(r.Group("/internal"))
	return r
}

func TestHandler_Run(t *testing.T) {
	f := newDispatcherFixture(t)
	f.addTask(t, "Ship release", time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC), project.TaskTodo,
		assignee("U1", "uma@x.com"))
	r := newReminderRouter(f.dispatcher(DispatcherConfig{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal/reminders/run?at=2026-06-01T09:00:00Z", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Success bool       `json:"success"`
		Data    RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Data.Tasks)
	assert.Equal(t, 1, body.Data.Sent)
	assert.True(t, body.Data.From.Equal(time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)))

	// Same day again: already sent.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/internal/reminders/run?at=2026-06-01T15:00:00Z", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Zero(t, body.Data.Sent)
	assert.Equal(t, 1, body.Data.Duplicates)
}

func TestHandler_RunBadTime(t *testing.T) {
	f := newDispatcherFixture(t)
	r := newReminderRouter(f.dispatcher(DispatcherConfig{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/internal/reminders/run?at=tomorrow", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "RFC3339")
}

func TestHandler_RunQueryFailure(t *testing.T) {
	d := NewDispatcher(failingSource{}, &stubTokens{}, &recordingPusher{}, NewMemoryLedger(0), DispatcherConfig{}, nil, nil)
	r := newReminderRouter(d)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/internal/reminders/run", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "database unavailable")
}
