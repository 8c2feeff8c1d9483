// Package refresh decides when the widget re-fetches its prayer schedule:
// immediately when a prayer is reached, and through a bounded polling window
// opened once per day shortly after midnight.
package refresh

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smokyabdulrahman/prayer-widget/internal/clock"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

// DayLayout formats calendar days in State.
const DayLayout = "2006-01-02"

// Defaults for the post-midnight poll window.
const (
	DefaultOffset   = "00:16"
	DefaultAttempts = 3
	DefaultInterval = 15 * time.Minute
)

// Reason says why a fetch was requested.
type Reason int

const (
	ReasonStartup Reason = iota
	ReasonReached
	ReasonPoll
	ReasonCityChange
)

func (r Reason) String() string {
	switch r {
	case ReasonStartup:
		return "startup"
	case ReasonReached:
		return "prayer-reached"
	case ReasonPoll:
		return "poll"
	case ReasonCityChange:
		return "city-change"
	default:
		return "unknown"
	}
}

// Options configures a Scheduler. Zero values take the defaults above.
type Options struct {
	Clock    clock.Clock
	Offset   string        // local "HH:MM" at which the poll window opens
	Attempts int           // fetches per window
	Interval time.Duration // spacing between fetches in a window
	Fetch    func(Reason)  // called without the scheduler's lock held
}

// State is a snapshot of the refresh bookkeeping.
type State struct {
	LastFetchedDay        string // day of the most recently applied document
	WindowDay             string // day the poll window was last opened for
	PollAttemptsRemaining int
	NextWindow            time.Time
}

// Scheduler owns the refresh timers for one widget session.
type Scheduler struct {
	clock    clock.Clock
	offset   string
	attempts int
	interval time.Duration
	fetch    func(Reason)

	mu     sync.Mutex
	state  State
	align  clock.Timer
	poll   *clock.Task
	closed bool
}

// New validates opts and returns a Scheduler. Call Start to arm the daily
// poll window.
func New(opts Options) (*Scheduler, error) {
	s := &Scheduler{
		clock:    opts.Clock,
		offset:   opts.Offset,
		attempts: opts.Attempts,
		interval: opts.Interval,
		fetch:    opts.Fetch,
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.offset == "" {
		s.offset = DefaultOffset
	}
	if s.attempts == 0 {
		s.attempts = DefaultAttempts
	}
	if s.interval == 0 {
		s.interval = DefaultInterval
	}
	if s.fetch == nil {
		return nil, fmt.Errorf("refresh: Fetch callback is required")
	}
	if s.attempts < 0 {
		return nil, fmt.Errorf("refresh: attempts must be positive, got %d", s.attempts)
	}
	if s.interval < 0 {
		return nil, fmt.Errorf("refresh: interval must be positive, got %s", s.interval)
	}
	if _, err := prayer.ParseTimeToday(s.offset, time.Now()); err != nil {
		return nil, fmt.Errorf("refresh: invalid poll offset: %w", err)
	}
	return s, nil
}

// Start arms the alignment timer for the next occurrence of the offset.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.align != nil {
		return
	}
	now := s.clock.Now()
	next := s.offsetOn(now)
	if now.After(next) {
		next = s.offsetOn(now.AddDate(0, 0, 1))
	}
	s.armLocked(now, next)
}

// PrayerReached requests an immediate fetch.
func (s *Scheduler) PrayerReached() {
	s.fetch(ReasonReached)
}

// MarkFetched records the day of a successfully applied document.
func (s *Scheduler) MarkFetched(day string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastFetchedDay = day
}

// State returns a snapshot of the bookkeeping.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close stops all timers.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.align != nil {
		s.align.Stop()
		s.align = nil
	}
	s.stopPollLocked()
}

func (s *Scheduler) offsetOn(day time.Time) time.Time {
	// The offset was validated in New.
	t, _ := prayer.ParseTimeToday(s.offset, day)
	return t
}

func (s *Scheduler) armLocked(now, next time.Time) {
	if s.align != nil {
		s.align.Stop()
	}
	s.state.NextWindow = next
	s.align = s.clock.AfterFunc(next.Sub(now), s.openWindow)
}

// openWindow fires at the offset. It opens the poll window for today unless
// one was already opened today, then re-arms for tomorrow.
func (s *Scheduler) openWindow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	now := s.clock.Now()
	next := s.offsetOn(now)
	if !now.Before(next) {
		next = s.offsetOn(now.AddDate(0, 0, 1))
	}
	s.armLocked(now, next)

	day := now.Format(DayLayout)
	if s.state.WindowDay == day {
		log.Debug().Str("day", day).Msg("poll window already opened today")
		return
	}

	s.stopPollLocked()
	s.state.WindowDay = day
	s.state.PollAttemptsRemaining = s.attempts
	s.poll = clock.Every(s.clock, s.interval, s.pollAttempt)

	log.Info().
		Str("day", day).
		Int("attempts", s.attempts).
		Dur("interval", s.interval).
		Msg("poll window opened")
}

func (s *Scheduler) pollAttempt() {
	s.mu.Lock()
	if s.closed || s.state.PollAttemptsRemaining <= 0 {
		s.stopPollLocked()
		s.mu.Unlock()
		return
	}
	if s.state.LastFetchedDay == s.state.WindowDay {
		log.Debug().
			Str("day", s.state.WindowDay).
			Int("skipped", s.state.PollAttemptsRemaining).
			Msg("document for today already applied, closing poll window")
		s.state.PollAttemptsRemaining = 0
		s.stopPollLocked()
		s.mu.Unlock()
		return
	}

	s.state.PollAttemptsRemaining--
	attempt := s.attempts - s.state.PollAttemptsRemaining
	if s.state.PollAttemptsRemaining == 0 {
		s.stopPollLocked()
	}
	s.mu.Unlock()

	log.Info().Int("attempt", attempt).Int("of", s.attempts).Msg("poll window fetch")
	s.fetch(ReasonPoll)
}

func (s *Scheduler) stopPollLocked() {
	if s.poll != nil {
		s.poll.Stop()
		s.poll = nil
	}
}
