package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler triggers the dispatcher on a cron schedule. Overlapping runs
// are skipped.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher *Dispatcher
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewScheduler creates a scheduler running dispatcher on spec in loc.
func NewScheduler(spec string, loc *time.Location, dispatcher *Dispatcher, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	logger = logger.Named("scheduler")
	cl := cronLogger{logger.Sugar()}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		dispatcher: dispatcher,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start starts the cron loop in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("reminder scheduler started", zap.Time("next_run", e.Next))
	}
}

// Stop stops scheduling, cancels a running dispatch and waits for it to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	var done context.Context
	s.once.Do(func() {
		done = s.cron.Stop()
		s.cancel()
	})
	if done == nil {
		return nil
	}
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	if _, err := s.dispatcher.RunOnce(s.ctx, time.Now()); err != nil {
		s.logger.Error("reminder run failed", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
