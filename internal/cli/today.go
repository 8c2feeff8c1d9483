package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-widget/internal/display"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

// todayView is everything the root command shows.
type todayView struct {
	City     string
	Now      time.Time
	Schedule prayer.Schedule
	Prayers  []string // rows to show, in schedule order
	Period   prayer.Period
	Next     prayer.Target
}

func runToday(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, zerolog.WarnLevel)
	if err != nil {
		return err
	}
	defer a.Close()

	city, s, err := a.schedule(cmd.Context())
	if err != nil {
		return err
	}

	now := a.clock.Now()
	period, err := prayer.ClassifyPeriod(s, now)
	if err != nil {
		return err
	}
	next, err := prayer.ResolveNext(s, now)
	if err != nil {
		return err
	}

	v := todayView{
		City:     city,
		Now:      now,
		Schedule: s,
		Prayers:  a.cfg.SelectedPrayers(),
		Period:   period,
		Next:     next,
	}

	out := cmd.OutOrStdout()
	if FlagJSON {
		return printTodayJSON(out, v, a.timeFmt)
	}
	printTodayRich(out, v, a.timeFmt)
	return nil
}

// printTodayRich renders the colored terminal output for today's prayer schedule.
func printTodayRich(w io.Writer, v todayView, goTimeFmt string) {
	theme := display.PeriodTheme(v.Period)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", display.Bold("Prayer Times"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", v.City)
	fmt.Fprintf(w, "  %s\n", theme.Badge(v.Period.String()))
	fmt.Fprintln(w)

	current := openingPrayer(v.Period)
	tbl := display.NewTable([]string{"Prayer", "Time"})
	for _, name := range v.Prayers {
		raw, _ := v.Schedule.Get(name)
		t, err := prayer.ParseTimeToday(raw, v.Now)
		cell := raw
		if err == nil {
			cell = t.Format(goTimeFmt)
		}
		idx := tbl.AddRow([]string{name, cell})

		switch {
		case name == v.Next.Name && !v.Next.Rollover:
			tbl.SetHighlightRow(idx)
			tbl.SetSuffix(idx, "<- next in "+prayer.FormatRemaining(prayer.TimeRemaining(v.Next.Prayer, v.Now)))
		case name == current:
			tbl.MuteRow(idx)
		}
	}
	fmt.Fprintln(w, tbl.Render())
	fmt.Fprintf(w, "  %s\n", display.Dim("Date: "+v.Now.Format("Monday 2 January 2006")))

	if v.Next.Rollover {
		fmt.Fprintf(w, "  %s\n", display.Accent(fmt.Sprintf("Next: %s tomorrow at %s (in %s)",
			v.Next.Name, v.Next.Time.Format(goTimeFmt),
			prayer.FormatRemaining(prayer.TimeRemaining(v.Next.Prayer, v.Now)))))
	}
	fmt.Fprintln(w)
}

// todayJSON is the JSON output structure for the root command.
type todayJSON struct {
	City    string            `json:"city"`
	Date    string            `json:"date"`
	Timings map[string]string `json:"timings"`
	Period  string            `json:"period"`
	Current string            `json:"current"`
	Next    todayJSONNext     `json:"next"`
}

type todayJSONNext struct {
	Prayer    string `json:"prayer"`
	Time      string `json:"time"`
	Remaining string `json:"remaining"`
	Tomorrow  bool   `json:"tomorrow"`
}

// printTodayJSON renders structured JSON output.
func printTodayJSON(w io.Writer, v todayView, goTimeFmt string) error {
	timings := make(map[string]string)
	for _, name := range v.Prayers {
		raw, _ := v.Schedule.Get(name)
		if t, err := prayer.ParseTimeToday(raw, v.Now); err == nil {
			raw = t.Format(goTimeFmt)
		}
		timings[strings.ToLower(name)] = raw
	}

	out := todayJSON{
		City:    v.City,
		Date:    v.Now.Format("2006-01-02"),
		Timings: timings,
		Period:  v.Period.String(),
		Current: strings.ToLower(openingPrayer(v.Period)),
		Next: todayJSONNext{
			Prayer:    strings.ToLower(v.Next.Name),
			Time:      v.Next.Time.Format(goTimeFmt),
			Remaining: prayer.FormatRemaining(prayer.TimeRemaining(v.Next.Prayer, v.Now)),
			Tomorrow:  v.Next.Rollover,
		},
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
