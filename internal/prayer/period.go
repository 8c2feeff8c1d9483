package prayer

import "time"

// Period is one of the seven named intervals of a day, used for theming.
type Period int

const (
	PreFajr Period = iota
	FajrToSunrise
	SunriseToDhuhr
	DhuhrToAsr
	AsrToMaghrib
	MaghribToIsha
	PostIsha
)

var periodTags = [...]string{
	PreFajr:        "pre-fajr",
	FajrToSunrise:  "fajr-sunrise",
	SunriseToDhuhr: "sunrise-dhuhr",
	DhuhrToAsr:     "dhuhr-asr",
	AsrToMaghrib:   "asr-maghrib",
	MaghribToIsha:  "maghrib-isha",
	PostIsha:       "post-isha",
}

// String returns the stable tag used by sinks, e.g. "maghrib-isha".
func (p Period) String() string {
	if p < PreFajr || p > PostIsha {
		return "unknown"
	}
	return periodTags[p]
}

// Night reports whether p is one of the two catch-all tags. Both render as
// the same night state, which spans Isha today to Fajr tomorrow.
func (p Period) Night() bool {
	return p == PreFajr || p == PostIsha
}

// ClassifyPeriod maps now onto the half-open intervals between today's six
// instants. Before Fajr is PreFajr; at or after Isha is PostIsha.
func ClassifyPeriod(s Schedule, now time.Time) (Period, error) {
	instants, err := s.Instants(now)
	if err != nil {
		return PreFajr, err
	}

	// instants[i] opens period i+1 and instants[i+1] closes it.
	for i := 0; i < len(instants)-1; i++ {
		if !now.Before(instants[i].Time) && now.Before(instants[i+1].Time) {
			return Period(i + 1), nil
		}
	}
	if now.Before(instants[0].Time) {
		return PreFajr, nil
	}
	return PostIsha, nil
}
