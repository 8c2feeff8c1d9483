package prayer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Prayer names as they appear in the provider document.
const (
	Fajr    = "Fajr"
	Sunrise = "Sunrise"
	Dhuhr   = "Dhuhr"
	Asr     = "Asr"
	Maghrib = "Maghrib"
	Isha    = "Isha"
)

// AllNames lists the six daily time points in chronological order.
var AllNames = []string{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}

// CountableNames are the prayers eligible as a countdown target, in the fixed
// order the resolver walks them. Sunrise is display-only.
var CountableNames = []string{Fajr, Dhuhr, Asr, Maghrib, Isha}

// ShortNames maps full prayer names to single-character abbreviations.
var ShortNames = map[string]string{
	Fajr:    "F",
	Sunrise: "S",
	Dhuhr:   "D",
	Asr:     "A",
	Maghrib: "M",
	Isha:    "I",
}

// Schedule holds one city's six "HH:MM" times for one day.
type Schedule struct {
	Fajr    string `json:"Fajr"`
	Sunrise string `json:"Sunrise"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`
}

// Get returns the raw time string for the named prayer.
func (s Schedule) Get(name string) (string, bool) {
	switch name {
	case Fajr:
		return s.Fajr, true
	case Sunrise:
		return s.Sunrise, true
	case Dhuhr:
		return s.Dhuhr, true
	case Asr:
		return s.Asr, true
	case Maghrib:
		return s.Maghrib, true
	case Isha:
		return s.Isha, true
	default:
		return "", false
	}
}

// Validate checks that all six times parse. It returns the first
// *MalformedTimeError found.
func (s Schedule) Validate() error {
	_, err := s.Instants(time.Now())
	return err
}

// Prayer is a prayer name bound to an absolute instant.
type Prayer struct {
	Name string
	Time time.Time
}

// Target is the resolved next prayer. Rollover is set when the prayer was
// anchored to the day after the reference day.
type Target struct {
	Prayer
	Rollover bool
}

// MalformedTimeError reports a time string that is not a valid "HH:MM".
type MalformedTimeError struct {
	Prayer string // empty when parsing a bare string
	Value  string
	Reason string
}

func (e *MalformedTimeError) Error() string {
	if e.Prayer != "" {
		return fmt.Sprintf("malformed time for %s (%q): %s", e.Prayer, e.Value, e.Reason)
	}
	return fmt.Sprintf("malformed time %q: %s", e.Value, e.Reason)
}

// IsMalformed reports whether err is or wraps a *MalformedTimeError.
func IsMalformed(err error) bool {
	var m *MalformedTimeError
	return errors.As(err, &m)
}

// ParseTimeToday converts an "HH:MM" string into an instant at HH:MM:00.000
// on referenceDay's calendar date, in referenceDay's location. A trailing
// zone label such as " (CET)" is ignored; no zone conversion is done.
func ParseTimeToday(raw string, referenceDay time.Time) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if idx := strings.IndexAny(s, " \t"); idx != -1 {
		s = s[:idx]
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return time.Time{}, &MalformedTimeError{Value: raw, Reason: "want HH:MM"}
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, &MalformedTimeError{Value: raw, Reason: "hour is not an integer"}
	}
	min, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, &MalformedTimeError{Value: raw, Reason: "minute is not an integer"}
	}
	if hour < 0 || hour > 23 {
		return time.Time{}, &MalformedTimeError{Value: raw, Reason: "hour out of range 0-23"}
	}
	if min < 0 || min > 59 {
		return time.Time{}, &MalformedTimeError{Value: raw, Reason: "minute out of range 0-59"}
	}

	y, m, d := referenceDay.Date()
	return time.Date(y, m, d, hour, min, 0, 0, referenceDay.Location()), nil
}

// Instants parses all six times onto day, in chronological order.
func (s Schedule) Instants(day time.Time) ([]Prayer, error) {
	prayers := make([]Prayer, 0, len(AllNames))
	for _, name := range AllNames {
		raw, _ := s.Get(name)
		t, err := ParseTimeToday(raw, day)
		if err != nil {
			var m *MalformedTimeError
			if errors.As(err, &m) {
				m.Prayer = name
			}
			return nil, err
		}
		prayers = append(prayers, Prayer{Name: name, Time: t})
	}
	return prayers, nil
}

// ResolveNext returns the first countable prayer whose instant today is
// strictly after now. When every countable prayer has passed, it returns
// Fajr on the following day with Rollover set.
//
// The walk is positional over CountableNames. Two prayers declared at the
// same minute are not reordered.
func ResolveNext(s Schedule, now time.Time) (Target, error) {
	prayers, err := s.Instants(now)
	if err != nil {
		return Target{}, err
	}

	byName := make(map[string]time.Time, len(prayers))
	for _, p := range prayers {
		byName[p.Name] = p.Time
	}

	for _, name := range CountableNames {
		if t := byName[name]; t.After(now) {
			return Target{Prayer: Prayer{Name: name, Time: t}}, nil
		}
	}

	tomorrow := now.AddDate(0, 0, 1)
	t, err := ParseTimeToday(s.Fajr, tomorrow)
	if err != nil {
		return Target{}, err
	}
	return Target{Prayer: Prayer{Name: Fajr, Time: t}, Rollover: true}, nil
}

// TimeRemaining returns the duration until the given prayer time.
func TimeRemaining(p Prayer, now time.Time) time.Duration {
	return p.Time.Sub(now)
}

// FormatRemaining formats a duration as "Xh Ym" or "Ym" if less than an hour.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		return "0m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
