// Package widget runs one live prayer widget: it fetches a city's schedule,
// counts down to the next prayer, tracks the day period and re-fetches when
// a prayer is reached or the daily poll window opens.
package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/smokyabdulrahman/prayer-widget/internal/api"
	"github.com/smokyabdulrahman/prayer-widget/internal/clock"
	"github.com/smokyabdulrahman/prayer-widget/internal/countdown"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
	"github.com/smokyabdulrahman/prayer-widget/internal/refresh"
)

// ErrSuperseded is returned by Refresh when a newer fetch started while this
// one was in flight. Its result is discarded.
var ErrSuperseded = errors.New("refresh superseded by a newer request")

// ErrClosed is returned by Refresh after Close.
var ErrClosed = errors.New("session closed")

// Options configures a Session.
type Options struct {
	Clock    clock.Clock
	Provider api.Provider
	Sink     Sink
	City     string

	// Poll window settings; zero values take the refresh defaults.
	PollOffset   string
	PollAttempts int
	PollInterval time.Duration

	// Spawn runs fetches triggered by timers. Defaults to a new goroutine.
	Spawn func(func())
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID          string
	City        string
	Schedule    prayer.Schedule
	HasSchedule bool
	Period      prayer.Period
	Countdown   countdown.State
	Refresh     refresh.State
	LastError   error
}

// Session owns the countdown and refresh schedulers for one widget.
type Session struct {
	id        string
	clock     clock.Clock
	provider  api.Provider
	sink      Sink
	spawn     func(func())
	countdown *countdown.Scheduler
	refresher *refresh.Scheduler

	mu          sync.Mutex
	ctx         context.Context
	city        string
	shownCity   string        // city of the applied schedule
	target      prayer.Target // target of the running countdown
	schedule    prayer.Schedule
	hasSchedule bool
	period      prayer.Period
	periodKnown bool
	lastErr     error
	gen         uint64
	closed      bool
}

// New validates opts and returns an unstarted Session.
func New(opts Options) (*Session, error) {
	if opts.Provider == nil {
		return nil, errors.New("widget: Provider is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("widget: Sink is required")
	}
	if opts.City == "" {
		return nil, errors.New("widget: City is required")
	}

	s := &Session{
		id:       uuid.NewString(),
		clock:    opts.Clock,
		provider: opts.Provider,
		sink:     opts.Sink,
		spawn:    opts.Spawn,
		city:     opts.City,
		ctx:      context.Background(),
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.spawn == nil {
		s.spawn = func(f func()) { go f() }
	}

	s.countdown = countdown.New(countdown.Options{
		Clock:     s.clock,
		OnTick:    s.onTick,
		OnReached: s.onReached,
	})

	r, err := refresh.New(refresh.Options{
		Clock:    s.clock,
		Offset:   opts.PollOffset,
		Attempts: opts.PollAttempts,
		Interval: opts.PollInterval,
		Fetch: func(reason refresh.Reason) {
			s.spawn(func() { _ = s.Refresh(s.baseContext(), reason) })
		},
	})
	if err != nil {
		return nil, fmt.Errorf("widget: %w", err)
	}
	s.refresher = r
	return s, nil
}

// ID identifies the session in logs and published records.
func (s *Session) ID() string {
	return s.id
}

// Start arms the daily poll window and performs the initial fetch. ctx
// bounds every fetch the session makes, including timer-triggered ones. A
// failed initial fetch is reported to the sink and returned; the session
// keeps running.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.refresher.Start()
	log.Info().Str("session", s.id).Str("city", s.City()).Msg("widget session started")
	return s.Refresh(ctx, refresh.ReasonStartup)
}

// City returns the selected city.
func (s *Session) City() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.city
}

// SetCity switches to city and fetches its schedule immediately. The
// previous city's data stays displayed if the fetch fails.
func (s *Session) SetCity(ctx context.Context, city string) error {
	if city == "" {
		return errors.New("city must not be empty")
	}
	s.mu.Lock()
	s.city = city
	s.mu.Unlock()
	return s.Refresh(ctx, refresh.ReasonCityChange)
}

// Refresh fetches the current city's schedule and applies it unless a newer
// Refresh started meanwhile. On failure the sink gets a Failure record and
// the prior schedule and countdown are kept.
func (s *Session) Refresh(ctx context.Context, reason refresh.Reason) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.gen++
	gen := s.gen
	city := s.city
	s.mu.Unlock()

	logger := log.With().
		Str("session", s.id).
		Str("city", city).
		Stringer("reason", reason).
		Uint64("generation", gen).
		Logger()
	logger.Debug().Msg("fetching schedule")

	day := s.clock.Now()
	sched, docDay, err := s.provider.Fetch(ctx, city, day)
	if err == nil {
		err = sched.Validate()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if gen != s.gen {
		s.mu.Unlock()
		logger.Debug().Msg("discarding superseded fetch result")
		return ErrSuperseded
	}

	if err != nil {
		s.lastErr = err
		stale, hasStale := s.schedule, s.hasSchedule
		s.mu.Unlock()

		logger.Warn().Err(err).Msg("refresh failed, keeping previous schedule")
		s.sink.Error(Failure{City: city, Reason: reason, Err: err})

		// A reached countdown would otherwise stay silent until the next
		// successful fetch.
		if hasStale && s.countdown.State().Phase != countdown.Running {
			if startErr := s.countdown.Start(stale); startErr != nil {
				logger.Error().Err(startErr).Msg("failed to restart countdown on previous schedule")
			} else {
				s.mu.Lock()
				s.target = s.countdown.State().Target
				s.mu.Unlock()
			}
		}
		return err
	}

	now := s.clock.Now()
	period, _ := prayer.ClassifyPeriod(sched, now)
	s.schedule = sched
	s.hasSchedule = true
	s.lastErr = nil
	s.period = period
	s.periodKnown = true
	// Validated above, so the resolver cannot fail here.
	_ = s.countdown.Start(sched)
	s.target = s.countdown.State().Target
	s.shownCity = city
	if docDay != "" {
		s.refresher.MarkFetched(docDay)
	}
	s.mu.Unlock()

	logger.Info().Str("day", docDay).Stringer("period", period).Msg("schedule applied")
	s.sink.Schedule(city, sched)
	s.sink.Period(city, period)
	return nil
}

// Snapshot returns the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		ID:          s.id,
		City:        s.city,
		Schedule:    s.schedule,
		HasSchedule: s.hasSchedule,
		Period:      s.period,
		LastError:   s.lastErr,
	}
	s.mu.Unlock()

	snap.Countdown = s.countdown.State()
	snap.Refresh = s.refresher.State()
	return snap
}

// Close stops all timers. In-flight fetches are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.countdown.Close()
	s.refresher.Close()
	log.Info().Str("session", s.id).Msg("widget session closed")
}

func (s *Session) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Session) onTick(t countdown.Tick) {
	s.mu.Lock()
	if t.Target.Name != s.target.Name || !t.Target.Time.Equal(s.target.Time) {
		// Left over from a countdown that has since been replaced.
		s.mu.Unlock()
		return
	}
	city := s.shownCity
	changed := false
	var period prayer.Period
	if s.hasSchedule {
		p, err := prayer.ClassifyPeriod(s.schedule, t.Now)
		if err == nil && (!s.periodKnown || p != s.period) {
			s.period = p
			s.periodKnown = true
			changed = true
		}
		period = p
	}
	s.mu.Unlock()

	s.sink.Tick(Tick{
		City:       city,
		NextPrayer: t.Target.Name,
		At:         t.Target.Time,
		Hours:      t.Hours,
		Minutes:    t.Minutes,
		Seconds:    t.Seconds,
		Rollover:   t.Target.Rollover,
	})
	if changed {
		s.sink.Period(city, period)
	}
}

func (s *Session) onReached(target prayer.Target) {
	log.Info().Str("session", s.id).Str("prayer", target.Name).Msg("prayer time reached")
	s.refresher.PrayerReached()
}
