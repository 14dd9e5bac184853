package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/crewboard/server/internal/module/project"
	"github.com/crewboard/server/internal/shared/metrics"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TaskSource selects tasks due in a window.
type TaskSource interface {
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*project.Task, error)
}

// Dispatch outcomes.
const (
	OutcomeSent      = "sent"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
)

// DispatcherConfig holds dispatcher tuning.
type DispatcherConfig struct {
	Concurrency     int
	DispatchTimeout time.Duration
	Location        *time.Location
}

// RunSummary reports a single reminder run.
type RunSummary struct {
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Tasks      int       `json:"tasks"`
	Sent       int       `json:"sent"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Duplicates int       `json:"duplicates"`
}

// Dispatcher sends one reminder per (task, assignee) for tasks due
// tomorrow. A failure in one dispatch never affects the others.
type Dispatcher struct {
	tasks   TaskSource
	tokens  TokenResolver
	pusher  Pusher
	ledger  Ledger
	cfg     DispatcherConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewDispatcher creates a new reminder dispatcher.
func NewDispatcher(tasks TaskSource, tokens TokenResolver, pusher Pusher, ledger Ledger, cfg DispatcherConfig, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 15 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		tasks:   tasks,
		tokens:  tokens,
		pusher:  pusher,
		ledger:  ledger,
		cfg:     cfg,
		metrics: m,
		logger:  logger.Named("reminders"),
	}
}

// job is one (task, assignee) pair.
type job struct {
	task     *project.Task
	assignee project.Assignee
}

// RunOnce dispatches reminders for tasks due on the calendar day after
// now. It only fails when the task query fails.
func (d *Dispatcher) RunOnce(ctx context.Context, now time.Time) (*RunSummary, error) {
	started := time.Now()
	from, to := Window(now, d.cfg.Location)
	summary := &RunSummary{From: from, To: to}

	tasks, err := d.tasks.ListDueBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	summary.Tasks = len(tasks)

	var (
		mu   sync.Mutex
		errs *multierror.Error
		g    errgroup.Group
	)
	g.SetLimit(d.cfg.Concurrency)

	day := dayKey(from)
	for _, task := range tasks {
		for _, assignee := range task.Assignees {
			j := job{task: task, assignee: assignee}
			g.Go(func() error {
				outcome, err := d.dispatch(ctx, j, day)
				d.metrics.RecordReminder(outcome)

				mu.Lock()
				defer mu.Unlock()
				switch outcome {
				case OutcomeSent:
					summary.Sent++
				case OutcomeSkipped:
					summary.Skipped++
				case OutcomeDuplicate:
					summary.Duplicates++
				case OutcomeFailed:
					summary.Failed++
				}
				if err != nil {
					errs = multierror.Append(errs, err)
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	d.metrics.RecordReminderRun(time.Since(started))
	fields := []zap.Field{
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("tasks", summary.Tasks),
		zap.Int("sent", summary.Sent),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("duplicates", summary.Duplicates),
		zap.Duration("took", time.Since(started)),
	}
	if err := errs.ErrorOrNil(); err != nil {
		d.logger.Warn("reminder run finished with failures", append(fields, zap.Error(err))...)
	} else {
		d.logger.Info("reminder run finished", fields...)
	}
	return summary, nil
}

// dispatch handles a single (task, assignee) pair under its own timeout.
// Skips are logged and return a nil error.
func (d *Dispatcher) dispatch(ctx context.Context, j job, day string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.DispatchTimeout)
	defer cancel()

	taskID := j.task.ID.String()
	log := d.logger.With(
		zap.String("task_id", taskID),
		zap.String("email", j.assignee.Email),
	)

	if j.assignee.IdentityID == "" {
		log.Debug("assignee has not registered, skipping")
		return OutcomeSkipped, nil
	}

	token, err := d.tokens.PushToken(ctx, j.assignee.IdentityID)
	if err != nil {
		log.Warn("push token lookup failed", zap.Error(err))
		return OutcomeFailed, fmt.Errorf("task %s assignee %s: resolve token: %w", taskID, j.assignee.IdentityID, err)
	}
	if token == "" {
		log.Info("assignee has no push token, skipping")
		return OutcomeSkipped, nil
	}
	if !ValidPushToken(token) {
		log.Warn("assignee has a malformed push token, skipping")
		return OutcomeSkipped, nil
	}

	key := ReminderKey{TaskID: taskID, IdentityID: j.assignee.IdentityID, Day: day}
	claimed, err := d.ledger.Claim(ctx, key)
	switch {
	case err != nil:
		// Fail open and send unclaimed.
		log.Warn("reminder ledger unavailable, sending unclaimed", zap.Error(err))
	case !claimed:
		log.Debug("reminder already sent today")
		return OutcomeDuplicate, nil
	}

	if err := d.pusher.Send(ctx, d.message(j, token)); err != nil {
		if claimed {
			// ctx may already be done.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if rerr := d.ledger.Release(releaseCtx, key); rerr != nil {
				err = errors.Join(err, rerr)
			}
			cancel()
		}
		log.Warn("reminder dispatch failed", zap.Error(err))
		return OutcomeFailed, fmt.Errorf("task %s assignee %s: send: %w", taskID, j.assignee.IdentityID, err)
	}

	log.Debug("reminder sent")
	return OutcomeSent, nil
}

func (d *Dispatcher) message(j job, token string) Message {
	body := fmt.Sprintf("%q is due tomorrow", j.task.Title)
	if j.task.DueDate != nil {
		body = fmt.Sprintf("%q is due %s", j.task.Title, j.task.DueDate.In(d.cfg.Location).Format("Mon Jan 2 at 15:04"))
	}
	return Message{
		To:       token,
		Title:    "Task due tomorrow",
		Body:     body,
		Sound:    "default",
		Priority: "high",
		Data: map[string]string{
			"type":      "task_due",
			"taskId":    j.task.ID.String(),
			"projectId": j.task.ProjectID.String(),
		},
	}
}
