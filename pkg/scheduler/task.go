// Package scheduler runs a recurring callback on its own goroutine, either
// on a fixed interval or whenever an external frame signal fires.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCanceled is returned when starting a task that was already canceled
var ErrCanceled = errors.New("scheduler: task canceled")

// Task is a cancelable recurring callback. Runs never overlap: each one
// completes before the next is scheduled.
type Task struct {
	name     string
	interval time.Duration
	trigger  <-chan struct{}
	fn       func(context.Context)

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc

	mu       sync.Mutex
	running  bool
	canceled bool
	runs     uint64
}

// NewTask runs fn every interval once started
func NewTask(name string, interval time.Duration, fn func(context.Context)) *Task {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return newTask(name, interval, nil, fn)
}

// NewTriggeredTask runs fn each time trigger receives, for hosts that own
// their own frame callback
func NewTriggeredTask(name string, trigger <-chan struct{}, fn func(context.Context)) *Task {
	return newTask(name, 0, trigger, fn)
}

func newTask(name string, interval time.Duration, trigger <-chan struct{}, fn func(context.Context)) *Task {
	return &Task{
		name:     name,
		interval: interval,
		trigger:  trigger,
		fn:       fn,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Name returns the task name
func (t *Task) Name() string {
	return t.name
}

// Start launches the task goroutine. Starting a running task is a no-op.
// The task stops when ctx is done or Cancel is called and cannot be
// restarted afterwards.
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.canceled {
		return ErrCanceled
	}
	if t.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running = true
	go t.loop(runCtx)
	return nil
}

func (t *Task) loop(ctx context.Context) {
	defer close(t.doneCh)
	defer func() {
		t.mu.Lock()
		t.running = false
		t.canceled = true
		t.mu.Unlock()
	}()

	var tick <-chan time.Time
	if t.trigger == nil {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-t.stopCh:
			return
		case <-ctx.Done():
			return
		case <-tick:
		case _, ok := <-t.trigger:
			if !ok {
				return
			}
		}

		// a stop that raced with the tick wins
		select {
		case <-t.stopCh:
			return
		default:
		}

		t.fn(ctx)

		t.mu.Lock()
		t.runs++
		t.mu.Unlock()
	}
}

// Cancel stops the task and waits for an in-flight run to return. It is
// idempotent and safe on a task that was never started. It must not be
// called from the callback itself.
func (t *Task) Cancel() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.canceled = true
		started := t.cancel != nil
		if started {
			t.cancel()
		}
		close(t.stopCh)
		t.mu.Unlock()

		if !started {
			close(t.doneCh)
		}
	})
	<-t.doneCh
}

// Done is closed once the task has stopped
func (t *Task) Done() <-chan struct{} {
	return t.doneCh
}

// Running reports whether the task goroutine is active
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Runs returns how many times the callback has completed
func (t *Task) Runs() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}
