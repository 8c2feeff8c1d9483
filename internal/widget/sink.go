package widget

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
	"github.com/smokyabdulrahman/prayer-widget/internal/refresh"
)

// Tick is the per-second countdown record.
type Tick struct {
	City       string    `json:"city"`
	NextPrayer string    `json:"next_prayer"`
	At         time.Time `json:"at"`
	Hours      int       `json:"hours"`
	Minutes    int       `json:"minutes"`
	Seconds    int       `json:"seconds"`
	Rollover   bool      `json:"rollover"`
}

// Failure is emitted when a fetch or its result is unusable. The previously
// displayed data stays in place.
type Failure struct {
	City   string
	Reason refresh.Reason
	Err    error
}

// Sink receives everything the session wants shown. Implementations must not
// call back into the Session.
type Sink interface {
	Schedule(city string, s prayer.Schedule)
	Tick(t Tick)
	Period(city string, p prayer.Period)
	Error(f Failure)
}

// Multi fans every record out to each sink in order.
type Multi []Sink

func (m Multi) Schedule(city string, s prayer.Schedule) {
	for _, sink := range m {
		sink.Schedule(city, s)
	}
}

func (m Multi) Tick(t Tick) {
	for _, sink := range m {
		sink.Tick(t)
	}
}

func (m Multi) Period(city string, p prayer.Period) {
	for _, sink := range m {
		sink.Period(city, p)
	}
}

func (m Multi) Error(f Failure) {
	for _, sink := range m {
		sink.Error(f)
	}
}

// LogSink writes records to the global zerolog logger. Ticks are logged at
// trace level.
type LogSink struct{}

func (LogSink) Schedule(city string, s prayer.Schedule) {
	log.Info().
		Str("city", city).
		Str("fajr", s.Fajr).
		Str("sunrise", s.Sunrise).
		Str("dhuhr", s.Dhuhr).
		Str("asr", s.Asr).
		Str("maghrib", s.Maghrib).
		Str("isha", s.Isha).
		Msg("schedule updated")
}

func (LogSink) Tick(t Tick) {
	log.Trace().
		Str("city", t.City).
		Str("next", t.NextPrayer).
		Int("hours", t.Hours).
		Int("minutes", t.Minutes).
		Int("seconds", t.Seconds).
		Bool("rollover", t.Rollover).
		Msg("tick")
}

func (LogSink) Period(city string, p prayer.Period) {
	log.Info().Str("city", city).Stringer("period", p).Msg("period changed")
}

func (LogSink) Error(f Failure) {
	log.Error().Err(f.Err).Str("city", f.City).Stringer("reason", f.Reason).Msg("refresh failed")
}
