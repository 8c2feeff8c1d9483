package prayer

import (
	"errors"
	"testing"
	"time"
)

// helper to build a local time.Time on the reference date.
func makeTime(t *testing.T, hour, min int) time.Time {
	t.Helper()
	return time.Date(2026, 2, 28, hour, min, 0, 0, time.Local)
}

// sampleSchedule is the Göteborg-style schedule used across the scenarios.
func sampleSchedule() Schedule {
	return Schedule{
		Fajr:    "04:58",
		Sunrise: "06:30",
		Dhuhr:   "12:10",
		Asr:     "15:20",
		Maghrib: "18:45",
		Isha:    "20:15",
	}
}

// ---------------------------------------------------------------------------
// ParseTimeToday
// ---------------------------------------------------------------------------

func TestParseTimeToday(t *testing.T) {
	date := time.Date(2026, 2, 28, 17, 45, 12, 500, time.UTC)

	tests := []struct {
		name    string
		raw     string
		wantH   int
		wantM   int
		wantErr bool
	}{
		{"simple HH:MM", "15:02", 15, 2, false},
		{"midnight", "00:00", 0, 0, false},
		{"last minute", "23:59", 23, 59, false},
		{"single digit hour", "5:07", 5, 7, false},
		{"with zone suffix", "15:02 (CET)", 15, 2, false},
		{"with spaces and suffix", "  05:17  (EET) ", 5, 17, false},
		{"invalid format", "bad", 0, 0, true},
		{"empty string", "", 0, 0, true},
		{"missing minute", "15:", 0, 0, true},
		{"non-numeric", "ab:cd", 0, 0, true},
		{"trailing garbage in minute", "12:3x", 0, 0, true},
		{"three components", "12:30:00", 0, 0, true},
		{"hour out of range", "24:00", 0, 0, true},
		{"minute out of range", "12:60", 0, 0, true},
		{"negative hour", "-1:30", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeToday(tt.raw, date)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTimeToday(%q) expected error, got nil", tt.raw)
				}
				var m *MalformedTimeError
				if !errors.As(err, &m) {
					t.Errorf("ParseTimeToday(%q) error type = %T, want *MalformedTimeError", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeToday(%q) unexpected error: %v", tt.raw, err)
			}
			if got.Hour() != tt.wantH || got.Minute() != tt.wantM {
				t.Errorf("ParseTimeToday(%q) = %02d:%02d, want %02d:%02d",
					tt.raw, got.Hour(), got.Minute(), tt.wantH, tt.wantM)
			}
			if got.Second() != 0 || got.Nanosecond() != 0 {
				t.Errorf("ParseTimeToday(%q) seconds not zeroed: %v", tt.raw, got)
			}
			if got.Year() != 2026 || got.Month() != 2 || got.Day() != 28 {
				t.Errorf("ParseTimeToday(%q) wrong date: got %v", tt.raw, got.Format("2006-01-02"))
			}
		})
	}
}

// TestParseTimeToday_AllValidInputs walks every well-formed HH:MM.
func TestParseTimeToday_AllValidInputs(t *testing.T) {
	date := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			raw := twoDigits(h) + ":" + twoDigits(m)
			got, err := ParseTimeToday(raw, date)
			if err != nil {
				t.Fatalf("ParseTimeToday(%q) unexpected error: %v", raw, err)
			}
			if got.Hour() != h || got.Minute() != m || got.Second() != 0 {
				t.Fatalf("ParseTimeToday(%q) = %v", raw, got)
			}
		}
	}
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

func TestParseTimeToday_Location(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	date := time.Date(2026, 6, 15, 0, 0, 0, 0, loc)

	got, err := ParseTimeToday("12:30", date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Location() != loc {
		t.Errorf("expected location %v, got %v", loc, got.Location())
	}
}

// ---------------------------------------------------------------------------
// Schedule
// ---------------------------------------------------------------------------

func TestSchedule_Instants(t *testing.T) {
	prayers, err := sampleSchedule().Instants(makeTime(t, 9, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prayers) != len(AllNames) {
		t.Fatalf("expected %d prayers, got %d", len(AllNames), len(prayers))
	}
	for i, name := range AllNames {
		if prayers[i].Name != name {
			t.Errorf("prayer[%d].Name = %q, want %q", i, prayers[i].Name, name)
		}
	}
}

func TestSchedule_ValidateNamesBadPrayer(t *testing.T) {
	s := sampleSchedule()
	s.Asr = "15h20"

	err := s.Validate()
	var m *MalformedTimeError
	if !errors.As(err, &m) {
		t.Fatalf("Validate() = %v, want *MalformedTimeError", err)
	}
	if m.Prayer != Asr {
		t.Errorf("MalformedTimeError.Prayer = %q, want %q", m.Prayer, Asr)
	}
	if !IsMalformed(err) {
		t.Error("IsMalformed should report true")
	}
}

func TestSchedule_ValidateMissingTime(t *testing.T) {
	s := sampleSchedule()
	s.Sunrise = ""
	if err := s.Validate(); !IsMalformed(err) {
		t.Errorf("Validate() with empty Sunrise = %v, want malformed", err)
	}
}

func TestSchedule_Get(t *testing.T) {
	s := sampleSchedule()
	for _, name := range AllNames {
		if v, ok := s.Get(name); !ok || v == "" {
			t.Errorf("Get(%q) = %q, %v", name, v, ok)
		}
	}
	if _, ok := s.Get("Tahajjud"); ok {
		t.Error("Get(unknown) should report false")
	}
}

// ---------------------------------------------------------------------------
// ResolveNext
// ---------------------------------------------------------------------------

func TestResolveNext_Scenarios(t *testing.T) {
	tests := []struct {
		name         string
		now          time.Time
		wantName     string
		wantDay      int
		wantH, wantM int
		wantRollover bool
	}{
		{"before fajr", makeTime(t, 3, 0), Fajr, 28, 4, 58, false},
		{"sunrise is skipped", makeTime(t, 5, 30), Dhuhr, 28, 12, 10, false},
		{"after dhuhr", makeTime(t, 13, 0), Asr, 28, 15, 20, false},
		{"scenario 19:00", makeTime(t, 19, 0), Isha, 28, 20, 15, false},
		{"exactly at dhuhr", makeTime(t, 12, 10), Asr, 28, 15, 20, false},
		{"scenario 21:00 rollover", makeTime(t, 21, 0), Fajr, 1, 4, 58, true},
		{"exactly at isha", makeTime(t, 20, 15), Fajr, 1, 4, 58, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveNext(sampleSchedule(), tt.now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != tt.wantName {
				t.Errorf("Name = %s, want %s", got.Name, tt.wantName)
			}
			if got.Time.Day() != tt.wantDay || got.Time.Hour() != tt.wantH || got.Time.Minute() != tt.wantM {
				t.Errorf("Time = %v, want day %d %02d:%02d", got.Time, tt.wantDay, tt.wantH, tt.wantM)
			}
			if got.Rollover != tt.wantRollover {
				t.Errorf("Rollover = %v, want %v", got.Rollover, tt.wantRollover)
			}
			if !got.Time.After(tt.now) {
				t.Errorf("target %v is not after now %v", got.Time, tt.now)
			}
		})
	}
}

func TestResolveNext_Idempotent(t *testing.T) {
	now := makeTime(t, 14, 7)
	first, err := ResolveNext(sampleSchedule(), now)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ResolveNext(sampleSchedule(), now)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("ResolveNext not idempotent: %+v vs %+v", first, second)
	}
}

// TestResolveNext_RolloverAlwaysAfterNow sweeps every minute from Isha to
// midnight.
func TestResolveNext_RolloverAlwaysAfterNow(t *testing.T) {
	for now := makeTime(t, 20, 15); now.Day() == 28; now = now.Add(time.Minute) {
		got, err := ResolveNext(sampleSchedule(), now)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Rollover || got.Name != Fajr {
			t.Fatalf("at %v got %+v, want rollover Fajr", now.Format("15:04"), got)
		}
		if !got.Time.After(now) {
			t.Fatalf("at %v rollover target %v not after now", now.Format("15:04"), got.Time)
		}
	}
}

func TestResolveNext_PositionalOrderOnTie(t *testing.T) {
	s := sampleSchedule()
	s.Asr = s.Dhuhr

	got, err := ResolveNext(s, makeTime(t, 12, 0))
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != Dhuhr {
		t.Errorf("tie resolved to %s, want list order Dhuhr", got.Name)
	}
}

func TestResolveNext_Malformed(t *testing.T) {
	s := sampleSchedule()
	s.Isha = "late"
	_, err := ResolveNext(s, makeTime(t, 9, 0))
	if !IsMalformed(err) {
		t.Errorf("ResolveNext error = %v, want malformed", err)
	}
}

// ---------------------------------------------------------------------------
// TimeRemaining
// ---------------------------------------------------------------------------

func TestTimeRemaining(t *testing.T) {
	p := Prayer{Name: Asr, Time: makeTime(t, 15, 2)}
	now := makeTime(t, 13, 0)

	d := TimeRemaining(p, now)
	if d.Hours() < 2.0 || d.Hours() > 2.1 {
		t.Errorf("expected ~2h, got %v", d)
	}
}

func TestTimeRemaining_Negative(t *testing.T) {
	p := Prayer{Name: Fajr, Time: makeTime(t, 5, 0)}
	now := makeTime(t, 10, 0)

	d := TimeRemaining(p, now)
	if d >= 0 {
		t.Errorf("expected negative duration, got %v", d)
	}
}

// ---------------------------------------------------------------------------
// FormatRemaining
// ---------------------------------------------------------------------------

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"hours and minutes", 2*time.Hour + 15*time.Minute, "2h 15m"},
		{"only minutes", 45 * time.Minute, "45m"},
		{"exactly one hour", 1 * time.Hour, "1h 0m"},
		{"zero", 0, "0m"},
		{"negative", -30 * time.Minute, "0m"},
		{"large", 10*time.Hour + 59*time.Minute, "10h 59m"},
		{"just over an hour", 1*time.Hour + 1*time.Minute, "1h 1m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatRemaining(tt.duration)
			if got != tt.want {
				t.Errorf("FormatRemaining(%v) = %q, want %q", tt.duration, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ShortNames
// ---------------------------------------------------------------------------

func TestShortNames_AllPrayers(t *testing.T) {
	for _, name := range AllNames {
		if _, ok := ShortNames[name]; !ok {
			t.Errorf("ShortNames missing entry for prayer %q", name)
		}
	}
}

func TestCountableNames_ExcludeSunrise(t *testing.T) {
	for _, name := range CountableNames {
		if name == Sunrise {
			t.Fatal("Sunrise must not be countable")
		}
	}
	if len(CountableNames) != 5 {
		t.Errorf("expected 5 countable prayers, got %d", len(CountableNames))
	}
}
