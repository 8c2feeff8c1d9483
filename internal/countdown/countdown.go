// Package countdown ticks once per second toward the next prayer and signals
// when it is reached.
package countdown

import (
	"sync"
	"time"

	"github.com/smokyabdulrahman/prayer-widget/internal/clock"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

// TickInterval is the spacing between countdown observations.
const TickInterval = time.Second

// Phase is the scheduler's state.
type Phase int

const (
	Idle Phase = iota
	Running
	Reached
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Reached:
		return "reached"
	default:
		return "unknown"
	}
}

// Tick is one countdown observation.
type Tick struct {
	Target    prayer.Target
	Now       time.Time
	Remaining time.Duration
	Hours     int
	Minutes   int
	Seconds   int
}

// State is a snapshot of the scheduler.
type State struct {
	Phase     Phase
	Target    prayer.Target
	Remaining time.Duration
}

// Options configures a Scheduler. OnTick and OnReached are called without
// the scheduler's lock held, so they may call Start. A tick that was already
// being delivered when Start or Close ran may still arrive once; consumers
// compare Tick.Target against the target they started.
type Options struct {
	Clock     clock.Clock
	OnTick    func(Tick)
	OnReached func(prayer.Target)
}

// Scheduler owns one countdown. At most one tick cycle is active at a time.
type Scheduler struct {
	clock     clock.Clock
	onTick    func(Tick)
	onReached func(prayer.Target)

	mu    sync.Mutex
	state State
	task  *clock.Task
	gen   uint64
}

// New returns an idle Scheduler.
func New(opts Options) *Scheduler {
	c := opts.Clock
	if c == nil {
		c = clock.New()
	}
	return &Scheduler{
		clock:     c,
		onTick:    opts.OnTick,
		onReached: opts.OnReached,
	}
}

// Start cancels any running cycle, pins the next prayer from s and begins
// ticking every second. If the schedule cannot be resolved the scheduler is
// left Idle and the error is returned.
func (c *Scheduler) Start(s prayer.Schedule) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()

	now := c.clock.Now()
	target, err := prayer.ResolveNext(s, now)
	if err != nil {
		c.state = State{Phase: Idle}
		return err
	}

	c.gen++
	gen := c.gen
	c.state = State{
		Phase:     Running,
		Target:    target,
		Remaining: target.Time.Sub(now),
	}
	c.task = clock.Every(c.clock, TickInterval, func() { c.tick(gen) })
	return nil
}

// tick advances the cycle identified by gen. Ticks from a superseded cycle
// are dropped.
func (c *Scheduler) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state.Phase != Running {
		c.mu.Unlock()
		return
	}

	now := c.clock.Now()
	target := c.state.Target
	remaining := target.Time.Sub(now)
	c.state.Remaining = remaining

	if remaining <= 0 {
		c.state.Phase = Reached
		c.state.Remaining = 0
		c.cancelLocked()
		c.mu.Unlock()

		if c.onReached != nil {
			c.onReached(target)
		}
		return
	}
	c.mu.Unlock()

	if c.onTick == nil {
		return
	}
	h, m, sec := prayer.SplitDuration(remaining)
	tk := Tick{
		Target:    target,
		Now:       now,
		Remaining: remaining,
		Hours:     h,
		Minutes:   m,
		Seconds:   sec,
	}
	if !c.current(gen) {
		return
	}
	c.onTick(tk)
}

// current reports whether gen is still the running cycle.
func (c *Scheduler) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen && c.state.Phase == Running
}

func (c *Scheduler) cancelLocked() {
	if c.task != nil {
		c.task.Stop()
		c.task = nil
	}
}

// State returns a snapshot of the current countdown.
func (c *Scheduler) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close stops ticking without signalling. It is meant for shutdown only;
// a running widget replaces its countdown by calling Start again.
func (c *Scheduler) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.gen++
	if c.state.Phase == Running {
		c.state.Phase = Idle
	}
}
