// Package clock abstracts wall-clock time and timers so the schedulers can be
// driven by a simulated clock in tests.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current local time and one-shot timers.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// AfterFunc calls f after d has elapsed. The returned Timer cancels the call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from running. It reports false if the call has
	// already run or was already stopped.
	Stop() bool
}

// New returns a Clock backed by the time package.
func New() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// In returns a Clock whose Now reports c's time in loc.
func In(c Clock, loc *time.Location) Clock {
	if loc == nil {
		return c
	}
	return located{Clock: c, loc: loc}
}

type located struct {
	Clock
	loc *time.Location
}

func (l located) Now() time.Time {
	return l.Clock.Now().In(l.loc)
}

// Task is a cancellable repeating call created by Every.
type Task struct {
	c        Clock
	interval time.Duration
	f        func()

	mu      sync.Mutex
	timer   Timer
	stopped bool
}

// Every runs f every interval until the returned Task is stopped. The first
// run happens one interval after Every is called. The next run is armed only
// after f returns, so consecutive runs are never closer than interval.
func Every(c Clock, interval time.Duration, f func()) *Task {
	t := &Task{c: c, interval: interval, f: f}
	t.mu.Lock()
	t.timer = c.AfterFunc(interval, t.run)
	t.mu.Unlock()
	return t
}

func (t *Task) run() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.f()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.timer = t.c.AfterFunc(t.interval, t.run)
}

// Stop cancels all future runs. It is safe to call from inside f and more
// than once.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Stopped reports whether Stop has been called.
func (t *Task) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
