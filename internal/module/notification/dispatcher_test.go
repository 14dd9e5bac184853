package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crewboard/server/internal/module/project"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// stubTokens resolves push tokens from a map.
type stubTokens struct {
	tokens map[string]string
	fail   map[string]error
}

func (s *stubTokens) PushToken(_ context.Context, identityID string) (string, error) {
	if err := s.fail[identityID]; err != nil {
		return "", err
	}
	return s.tokens[identityID], nil
}

// recordingPusher records sent messages and fails tokens listed in fail.
type recordingPusher struct {
	mu    sync.Mutex
	sent  []Message
	fail  map[string]error
	delay time.Duration

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (p *recordingPusher) Send(ctx context.Context, msg Message) error {
	n := p.inflight.Add(1)
	defer p.inflight.Add(-1)
	for {
		peak := p.maxInflight.Load()
		if n <= peak || p.maxInflight.CompareAndSwap(peak, n) {
			break
		}
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[msg.To]; err != nil {
		return err
	}
	p.sent = append(p.sent, msg)
	return nil
}

func (p *recordingPusher) messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.sent...)
}

func (p *recordingPusher) recipients() []string {
	var out []string
	for _, m := range p.messages() {
		out = append(out, m.To)
	}
	return out
}

type failingLedger struct{}

func (failingLedger) Claim(context.Context, ReminderKey) (bool, error) {
	return false, errors.New("ledger down")
}

func (failingLedger) Release(context.Context, ReminderKey) error {
	return errors.New("ledger down")
}

type failingSource struct{}

func (failingSource) ListDueBetween(context.Context, time.Time, time.Time) ([]*project.Task, error) {
	return nil, errors.New("database unavailable")
}

// runNow is 09:00 on 2026-06-01; reminders cover 2026-06-02.
var runNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type dispatcherFixture struct {
	repo   project.Repository
	tokens *stubTokens
	pusher *recordingPusher
	ledger *MemoryLedger
	logs   *observer.ObservedLogs
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()
	repo, err := project.NewMemoryRepository()
	require.NoError(t, err)
	return &dispatcherFixture{
		repo: repo,
		tokens: &stubTokens{tokens: map[string]string{
			"U1": "ExponentPushToken[u1-device]",
			"U2": "ExpoPushToken[u2-device]",
			"U3": "not-a-push-token",
		}},
		pusher: &recordingPusher{},
		ledger: NewMemoryLedger(time.Hour),
	}
}

func (f *dispatcherFixture) dispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	core, logs := observer.New(zap.DebugLevel)
	f.logs = logs
	return NewDispatcher(f.repo, f.tokens, f.pusher, f.ledger, cfg, nil, zap.New(core))
}

func (f *dispatcherFixture) addTask(t *testing.T, title string, due time.Time, status project.TaskStatus, assignees ...project.Assignee) *project.Task {
	t.Helper()
	task := &project.Task{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		Title:     title,
		CreatedBy: "U1",
		Status:    status,
		Priority:  project.PriorityMedium,
		DueDate:   &due,
		Assignees: assignees,
		IsActive:  true,
	}
	require.NoError(t, f.repo.CreateTask(context.Background(), task))
	return task
}

func assignee(identityID, email string) project.Assignee {
	return project.Assignee{IdentityID: identityID, Name: email, Email: email, Role: project.AssigneeRole}
}

func TestRunOnce_OneReminderPerAssigneeWithValidToken(t *testing.T) {
	f := newDispatcherFixture(t)
	tomorrow := time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC)

	task := f.addTask(t, "Ship release", tomorrow, project.TaskInProgress,
		assignee("U1", "uma@x.com"),
		assignee("U2", "bob@x.com"),
		assignee("U3", "eve@x.com"),    // malformed token
		assignee("U4", "nobody@x.com"), // no token
		assignee("", "pending@x.com"),  // not registered
	)
	f.addTask(t, "Due today", time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC), project.TaskTodo, assignee("U1", "uma@x.com"))
	f.addTask(t, "Due later", time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC), project.TaskTodo, assignee("U1", "uma@x.com"))

	summary, err := f.dispatcher(DispatcherConfig{}).RunOnce(context.Background(), runNow)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC), summary.From)
	assert.Equal(t, time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC), summary.To)
	assert.Equal(t, 1, summary.Tasks)
	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 3, summary.Skipped)
	assert.Zero(t, summary.Failed)

	assert.ElementsMatch(t, []string{"ExponentPushToken[u1-device]", "ExpoPushToken[u2-device]"}, f.pusher.recipients())

	msg := f.pusher.messages()[0]
	assert.Equal(t, "Task due tomorrow", msg.Title)
	assert.Contains(t, msg.Body, "Ship release")
	assert.Equal(t, "task_due", msg.Data["type"])
	assert.Equal(t, task.ID.String(), msg.Data["taskId"])
	assert.Equal(t, task.ProjectID.String(), msg.Data["projectId"])
}

func TestRunOnce_ScansEveryActiveTaskRegardlessOfStatus(t *testing.T) {
	f := newDispatcherFixture(t)
	tomorrow := time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC)

	f.addTask(t, "Already done", tomorrow, project.TaskCompleted, assignee("U1", "uma@x.com"))
	f.addTask(t, "Shelved", tomorrow, project.TaskArchived, assignee("U2", "bob@x.com"))
	deleted := f.addTask(t, "Deleted with project", tomorrow, project.TaskTodo, assignee("U1", "uma@x.com"))
	require.NoError(t, f.repo.CreateProject(context.Background(), &project.Project{
		ID:       deleted.ProjectID,
		TeamID:   uuid.New(),
		Name:     "Retired",
		Status:   project.StatusActive,
		IsActive: true,
	}))
	require.NoError(t, f.repo.SoftDeleteProject(context.Background(), deleted.ProjectID))

	summary, err := f.dispatcher(DispatcherConfig{}).RunOnce(context.Background(), runNow)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Tasks)
	assert.Equal(t, 2, summary.Sent)
	assert.ElementsMatch(t, []string{"ExponentPushToken[u1-device]", "ExpoPushToken[u2-device]"}, f.pusher.recipients())
}

func TestRunOnce_RerunSkipsSentReminders(t *testing.T) {
	f := newDispatcherFixture(t)
	f.addTask(t, "Ship release", time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC), project.TaskTodo,
		assignee("U1", "uma@x.com"))
	d := f.dispatcher(DispatcherConfig{})
	ctx := context.Background()

	first, err := d.RunOnce(ctx, runNow)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sent)

	second, err := d.RunOnce(ctx, runNow.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, second.Sent)
	assert.Equal(t, 1, second.Duplicates)
	assert.Len(t, f.pusher.messages(), 1)
}

func TestRunOnce_FailedSendIsRetriedNextRun(t *testing.T) {
	f := newDispatcherFixture(t)
	f.addTask(t, "Ship release", time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC), project.TaskTodo,
		assignee("U1", "uma@x.com"),
		assignee("U2", "bob@x.com"))
	f.pusher.fail = map[string]error{"ExponentPushToken[u1-device]": errors.New("gateway down")}
	d := f.dispatcher(DispatcherConfig{})
	ctx := context.Background()

	summary, err := d.RunOnce(ctx, runNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, f.logs.FilterMessage("reminder run finished with failures").Len())

	f.pusher.mu.Lock()
	f.pusher.fail = nil
	f.pusher.mu.Unlock()

	summary, err = d.RunOnce(ctx, runNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Duplicates)
	assert.ElementsMatch(t, []string{"ExpoPushToken[u2-device]", "ExponentPushToken[u1-device]"}, f.pusher.recipients())
}

func TestRunOnce_TokenLookupFailureIsIsolated(t *testing.T) {
	f := newDispatcherFixture(t)
	f.tokens.fail = map[string]error{"U2": errors.New("identity provider timeout")}
	f.addTask(t, "Ship release", time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC), project.TaskTodo,
		assignee("U1", "uma@x.com"),
		assignee("U2", "bob@x.com"))

	summary, err := f.dispatcher(DispatcherConfig{}).RunOnce(context.Background(), runNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"ExponentPushToken[u1-device]"}, f.pusher.recipients())
}

func TestRunOnce_LedgerUnavailableSendsAnyway(t *testing.T) {
	f := newDispatcherFixture(t)
	f.addTask(t, "Ship release", time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC), project.TaskTodo,
		assignee("U1", "uma@x.com"))

	core, logs := observer.New(zap.DebugLevel)
	d := NewDispatcher(f.repo, f.tokens, f.pusher, failingLedger{}, DispatcherConfig{Location: time.UTC}, nil, zap.New(core))

	summary, err := d.RunOnce(context.Background(), runNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, logs.FilterMessage("reminder ledger unavailable, sending unclaimed").Len())
}

func TestRunOnce_BoundedConcurrency(t *testing.T) {
	f := newDispatcherFixture(t)
	f.pusher.delay = 20 * time.Millisecond

	var assignees []project.Assignee
	for i := range 12 {
		id := fmt.Sprintf("P%d", i)
		f.tokens.tokens[id] = fmt.Sprintf("ExpoPushToken[p%d]", i)
		assignees = append(assignees, assignee(id, fmt.Sprintf("p%d@x.com", i)))
	}
	f.addTask(t, "Fan out", time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC), project.TaskTodo, assignees...)

	summary, err := f.dispatcher(DispatcherConfig{Concurrency: 3}).RunOnce(context.Background(), runNow)
	require.NoError(t, err)
	assert.Equal(t, 12, summary.Sent)
	assert.LessOrEqual(t, f.pusher.maxInflight.Load(), int32(3))
}

func TestRunOnce_DispatchTimeout(t *testing.T) {
	f := newDispatcherFixture(t)
	f.pusher.delay = time.Second
	task := f.addTask(t, "Slow", time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC), project.TaskTodo,
		assignee("U1", "uma@x.com"))

	d := f.dispatcher(DispatcherConfig{DispatchTimeout: 20 * time.Millisecond})
	summary, err := d.RunOnce(context.Background(), runNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	// The claim was released, so the reminder is still owed.
	ok, err := f.ledger.Claim(context.Background(), ReminderKey{
		TaskID:     task.ID.String(),
		IdentityID: "U1",
		Day:        "2026-06-02",
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunOnce_QueryFailure(t *testing.T) {
	d := NewDispatcher(failingSource{}, &stubTokens{}, &recordingPusher{}, NewMemoryLedger(0), DispatcherConfig{}, nil, nil)
	_, err := d.RunOnce(context.Background(), runNow)
	assert.ErrorContains(t, err, "list due tasks")
}

func TestRunOnce_UsesConfiguredLocation(t *testing.T) {
	f := newDispatcherFixture(t)
	loc := time.FixedZone("UTC-5", -5*60*60)

	// 21:00 local on 2026-06-01 is already 2026-06-02 in UTC.
	now := time.Date(2026, 6, 1, 21, 0, 0, 0, loc)
	f.addTask(t, "Local tomorrow", time.Date(2026, 6, 2, 23, 0, 0, 0, loc), project.TaskTodo,
		assignee("U1", "uma@x.com"))
	f.addTask(t, "Local today", time.Date(2026, 6, 2, 4, 0, 0, 0, time.UTC), project.TaskTodo,
		assignee("U2", "bob@x.com"))

	summary, err := f.dispatcher(DispatcherConfig{Location: loc}).RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Tasks)
	assert.Equal(t, []string{"ExponentPushToken[u1-device]"}, f.pusher.recipients())
}
