package widget

import (
	"fmt"
	"io"
	"sync"

	"github.com/smokyabdulrahman/prayer-widget/internal/clock"
	"github.com/smokyabdulrahman/prayer-widget/internal/display"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

const clearLine = "\r\033[2K"

// Terminal renders the widget to a terminal: the schedule as a table and the
// countdown as a single status line redrawn in place, painted with the
// current period's theme. Without colors the status is printed whenever
// the displayed minute changes instead.
type Terminal struct {
	w          io.Writer
	timeFormat string // Go layout, e.g. "15:04"
	clock      clock.Clock

	mu     sync.Mutex
	theme  display.Theme
	period prayer.Period
	live   bool   // a status line is on screen
	last   string // minute of the last plain status line
}

// NewTerminal returns a Terminal writing to w. timeFormat is a Go time
// layout such as "15:04" or "3:04 PM". Schedule times are resolved against
// c's current day and location.
func NewTerminal(w io.Writer, timeFormat string, c clock.Clock) *Terminal {
	if c == nil {
		c = clock.New()
	}
	return &Terminal{
		w:          w,
		timeFormat: timeFormat,
		clock:      c,
		theme:      display.PeriodTheme(prayer.PreFajr),
	}
}

func (t *Terminal) Schedule(city string, s prayer.Schedule) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endStatusLocked()
	t.last = ""

	now := t.clock.Now()
	tbl := display.NewTable([]string{"Prayer", "Time"})
	for _, name := range prayer.AllNames {
		raw, _ := s.Get(name)
		row := raw
		if ts, err := prayer.ParseTimeToday(raw, now); err == nil {
			row = ts.Format(t.timeFormat)
		}
		tbl.AddRow([]string{name, row})
	}

	fmt.Fprintf(t.w, "\n  %s\n\n%s\n", display.Bold(city), tbl.Render())
}

func (t *Terminal) Tick(tk Tick) {
	t.mu.Lock()
	defer t.mu.Unlock()

	text := fmt.Sprintf(" %s in %dh %dm %ds ", tk.NextPrayer, tk.Hours, tk.Minutes, tk.Seconds)
	if tk.Rollover {
		text = fmt.Sprintf(" %s (tomorrow) in %dh %dm %ds ", tk.NextPrayer, tk.Hours, tk.Minutes, tk.Seconds)
	}

	if !display.Enabled() {
		minute := fmt.Sprintf("%s/%t/%d/%d", tk.NextPrayer, tk.Rollover, tk.Hours, tk.Minutes)
		if minute != t.last {
			t.last = minute
			fmt.Fprintf(t.w, "  [%s]%s\n", t.period, text)
		}
		return
	}

	fmt.Fprintf(t.w, "%s  %s %s", clearLine, t.theme.Badge(t.period.String()), t.theme.Gradient(text))
	t.live = true
}

func (t *Terminal) Period(city string, p prayer.Period) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.period = p
	t.theme = display.PeriodTheme(p)
}

func (t *Terminal) Error(f Failure) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endStatusLocked()
	t.last = ""
	fmt.Fprintf(t.w, "  %s\n", display.Red(fmt.Sprintf("✗ %s: %v (showing last known times)", f.City, f.Err)))
}

// endStatusLocked moves past the in-place status line before printing
// anything else.
func (t *Terminal) endStatusLocked() {
	if t.live {
		fmt.Fprint(t.w, clearLine)
		t.live = false
	}
}
