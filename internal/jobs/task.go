package jobs

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Task runs fn every interval until stopped. Runs never overlap: the next
// run is scheduled only after fn returns.
type Task struct {
	clock    clockwork.Clock
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	timer   clockwork.Timer
	started bool
	stopped bool
}

// NewTask returns an unstarted Task.
func NewTask(clock clockwork.Clock, interval time.Duration, fn func()) *Task {
	return &Task{clock: clock, interval: interval, fn: fn}
}

// Start schedules the first run one interval from now. Starting twice, or
// after Stop, does nothing.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.stopped {
		return
	}
	t.started = true
	t.timer = t.clock.AfterFunc(t.interval, t.run)
}

func (t *Task) run() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.fn()

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		t.timer = t.clock.AfterFunc(t.interval, t.run)
	}
}

// Stop cancels any pending run. It is idempotent and may be called from fn;
// it reports whether this call stopped the task.
func (t *Task) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
	return true
}

// Stopped reports whether Stop has been called.
func (t *Task) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
