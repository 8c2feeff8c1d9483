package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-widget/internal/display"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

var flagFormat string

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer with countdown",
		Long:  "Display the next upcoming prayer time with a countdown, in a form suited to status bars.",
		RunE:  runNext,
	}

	cmd.Flags().StringVar(&flagFormat, "format", prayer.FormatFull,
		fmt.Sprintf("Display format: %s, or a custom Go template", strings.Join(prayer.FormatModes, ", ")))

	return cmd
}

func runNext(cmd *cobra.Command, args []string) error {
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
	next, err := prayer.ResolveNext(s, now)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if FlagJSON {
		h, m, sec := prayer.SplitDuration(prayer.TimeRemaining(next.Prayer, now))
		data, err := json.MarshalIndent(struct {
			City     string `json:"city"`
			Prayer   string `json:"prayer"`
			Time     string `json:"time"`
			Hours    int    `json:"hours"`
			Minutes  int    `json:"minutes"`
			Seconds  int    `json:"seconds"`
			Tomorrow bool   `json:"tomorrow"`
		}{city, strings.ToLower(next.Name), next.Time.Format(a.timeFmt), h, m, sec, next.Rollover}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprint(out, prayer.FormatOutput(next, now, flagFormat, a.timeFmt))
	return nil
}

func newPeriodCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "period",
		Short: "Show the current period of the day",
		Long:  "Print the current period tag (e.g. maghrib-isha) and its theme, for scripts that color a status bar.",
		RunE:  runPeriod,
	}
}

func runPeriod(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, zerolog.WarnLevel)
	if err != nil {
		return err
	}
	defer a.Close()

	city, s, err := a.schedule(cmd.Context())
	if err != nil {
		return err
	}

	p, err := prayer.ClassifyPeriod(s, a.clock.Now())
	if err != nil {
		return err
	}
	theme := display.PeriodTheme(p)

	out := cmd.OutOrStdout()
	if FlagJSON {
		data, err := json.MarshalIndent(struct {
			City   string `json:"city"`
			Period string `json:"period"`
			Night  bool   `json:"night"`
			Theme  string `json:"theme"`
			From   string `json:"from"`
			To     string `json:"to"`
		}{city, p.String(), p.Night(), theme.Name, theme.From, theme.To}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, p.String())
	return nil
}
