package prayer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Format constants for display modes.
const (
	FormatTimeRemaining      = "time-remaining"
	FormatNextPrayerTime     = "next-prayer-time"
	FormatNameAndTime        = "name-and-time"
	FormatNameAndRemaining   = "name-and-remaining"
	FormatShortNameAndTime   = "short-name-and-time"
	FormatShortNameAndRemain = "short-name-and-remaining"
	FormatCountdown          = "countdown"
	FormatFull               = "full"
)

// FormatModes lists the built-in modes, for flag help text.
var FormatModes = []string{
	FormatTimeRemaining, FormatNextPrayerTime, FormatNameAndTime,
	FormatNameAndRemaining, FormatShortNameAndTime, FormatShortNameAndRemain,
	FormatCountdown, FormatFull,
}

// FormatData is the data passed to custom Go templates.
type FormatData struct {
	Name      string // Full prayer name, e.g. "Asr"
	ShortName string // Abbreviated name, e.g. "A"
	Time      string // Formatted prayer time, e.g. "15:02" or "3:02 PM"
	Remaining string // Time remaining, e.g. "2h 15m"
	Hours     int    // Whole hours remaining
	Minutes   int    // Remaining minutes after hours
	Seconds   int    // Remaining seconds after minutes
	Tomorrow  bool   // Target rolled over to the next day
}

// FormatOutput formats the next-prayer target according to mode.
// timeFormat should be "15:04" for 24h or "3:04 PM" for 12h.
//
// If mode contains "{{", it is treated as a custom Go template string.
// Available template fields: .Name, .ShortName, .Time, .Remaining, .Hours,
// .Minutes, .Seconds, .Tomorrow
//
// Example: "{{.Name}} in {{.Remaining}}" -> "Asr in 2h 15m"
func FormatOutput(t Target, now time.Time, mode string, timeFormat string) string {
	d := TimeRemaining(t.Prayer, now)
	remaining := FormatRemaining(d)
	timeStr := t.Time.Format(timeFormat)
	short := ShortNames[t.Name]
	h, m, s := SplitDuration(d)

	if strings.Contains(mode, "{{") {
		return formatCustom(mode, FormatData{
			Name:      t.Name,
			ShortName: short,
			Time:      timeStr,
			Remaining: remaining,
			Hours:     h,
			Minutes:   m,
			Seconds:   s,
			Tomorrow:  t.Rollover,
		})
	}

	switch mode {
	case FormatTimeRemaining:
		return remaining
	case FormatNextPrayerTime:
		return timeStr
	case FormatNameAndTime:
		return fmt.Sprintf("%s %s", t.Name, timeStr)
	case FormatNameAndRemaining:
		return fmt.Sprintf("%s %s", t.Name, remaining)
	case FormatShortNameAndTime:
		return fmt.Sprintf("%s %s", short, timeStr)
	case FormatShortNameAndRemain:
		return fmt.Sprintf("%s %s", short, remaining)
	case FormatCountdown:
		return fmt.Sprintf("%s in %dh %dm %ds", t.Name, h, m, s)
	case FormatFull:
		out := fmt.Sprintf("%s %s (%s)", t.Name, timeStr, remaining)
		if t.Rollover {
			out += " tomorrow"
		}
		return out
	default:
		return fmt.Sprintf("%s %s", t.Name, timeStr)
	}
}

// SplitDuration breaks d into hours, minutes and seconds, flooring the
// millisecond delta and taking hours modulo 24. Negative durations yield
// zeros.
func SplitDuration(d time.Duration) (hours, minutes, seconds int) {
	ms := d.Milliseconds()
	if ms <= 0 {
		return 0, 0, 0
	}
	hours = int(ms/int64(time.Hour/time.Millisecond)) % 24
	minutes = int(ms/int64(time.Minute/time.Millisecond)) % 60
	seconds = int(ms/int64(time.Second/time.Millisecond)) % 60
	return hours, minutes, seconds
}

// formatCustom executes a user-provided Go template string against the FormatData.
func formatCustom(tmpl string, data FormatData) string {
	t, err := template.New("custom").Parse(tmpl)
	if err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Sprintf("template-err: %v", err)
	}

	return buf.String()
}
