package lib

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrTaskStarted is returned when a task is started twice.
var ErrTaskStarted = errors.New("task already started")

// Task runs a function periodically until stopped. Failures are logged and
// the next tick runs as scheduled.
type Task struct {
	name     string
	interval time.Duration
	delay    time.Duration
	fn       func(ctx context.Context) error
	logger   *zap.Logger

	lock   sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTask creates a task that first runs after delay, then every interval.
func NewTask(name string, interval, delay time.Duration, logger *zap.Logger, fn func(ctx context.Context) error) *Task {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Task{
		name:     name,
		interval: interval,
		delay:    delay,
		fn:       fn,
		logger:   logger.With(zap.String("task", name)),
	}
}

// Start launches the timer. The task stops when ctx is done or Stop is called.
func (t *Task) Start(ctx context.Context) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.cancel != nil {
		return ErrTaskStarted
	}
	if t.interval <= 0 {
		return errors.New("task interval must be positive")
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(ctx, t.done)

	t.logger.Info("task started", zap.Duration("interval", t.interval), zap.Duration("delay", t.delay))
	return nil
}

func (t *Task) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	wait := time.NewTimer(t.delay)
	defer wait.Stop()
	select {
	case <-ctx.Done():
		return
	case <-wait.C:
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for ctx.Err() == nil {
		t.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (t *Task) tick(ctx context.Context) {
	start := time.Now()
	if err := t.fn(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		t.logger.Warn("task failed", zap.Error(err))
		return
	}
	t.logger.Debug("task completed", zap.Duration("took", time.Since(start)))
}

// Running reports whether the task has been started and not stopped.
func (t *Task) Running() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.cancel != nil
}

// Stop cancels the timer and waits for a running tick to return.
func (t *Task) Stop() {
	t.lock.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.lock.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	t.logger.Info("task stopped")
}
