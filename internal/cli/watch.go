package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-widget/internal/publish"
	"github.com/smokyabdulrahman/prayer-widget/internal/widget"
)

var (
	flagMQTTBroker string
	flagMQTTTopic  string
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the live widget",
		Long: "Show today's schedule and a live countdown to the next prayer. The schedule is\n" +
			"re-fetched whenever a prayer time is reached and during the daily poll window.\n" +
			"With --mqtt-broker every update is also published to MQTT.\n\n" +
			"Type a city name and press Enter to switch cities while watching.",
		RunE: runWatch,
	}

	cmd.Flags().StringVar(&flagMQTTBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (overrides config)")
	cmd.Flags().StringVar(&flagMQTTTopic, "mqtt-topic", "", "MQTT topic prefix (overrides config)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("mqtt-broker") && loadedConfig != nil {
		loadedConfig.MQTTBroker = flagMQTTBroker
	}
	if cmd.Flags().Changed("mqtt-topic") && loadedConfig != nil {
		if err := loadedConfig.Set("mqtt_topic", flagMQTTTopic); err != nil {
			return fmt.Errorf("--mqtt-topic: %w", err)
		}
	}

	a, err := newApp(cmd, zerolog.InfoLevel)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watch(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout())
}

// watch runs a widget session until ctx is done. Each line read from in
// selects a new city.
func watch(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	city, err := a.city(ctx)
	if err != nil {
		return err
	}

	sinks := widget.Multi{widget.NewTerminal(out, a.timeFmt, a.clock), widget.LogSink{}}
	if a.cfg.MQTTBroker != "" {
		m, err := publish.Connect(a.cfg.MQTTBroker, a.cfg.MQTTTopic)
		if err != nil {
			return err
		}
		defer m.Close()
		sinks = append(sinks, m)
	}

	interval, err := a.cfg.PollIntervalDuration()
	if err != nil {
		return err
	}

	s, err := widget.New(widget.Options{
		Clock:        a.clock,
		Provider:     a.provider,
		Sink:         sinks,
		City:         city,
		PollOffset:   a.cfg.PollOffset,
		PollAttempts: a.cfg.PollAttemptsOrDefault(0),
		PollInterval: interval,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	// A failed first fetch is already on screen. The next attempt comes
	// with the poll window or a city selection.
	if err := s.Start(ctx); err != nil {
		log.Debug().Err(err).Msg("initial fetch failed")
	}

	go selectCities(ctx, in, s)

	<-ctx.Done()
	fmt.Fprintln(out)
	return nil
}

// selectCities switches s to every non-empty line read from r until r is
// exhausted or ctx is done. A failed switch is already reported through
// the session's sinks.
func selectCities(ctx context.Context, r io.Reader, s *widget.Session) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		city := strings.TrimSpace(sc.Text())
		if city == "" {
			continue
		}
		err := s.SetCity(ctx, city)
		switch {
		case err == nil, errors.Is(err, widget.ErrSuperseded):
		case errors.Is(err, widget.ErrClosed):
			return
		default:
			log.Debug().Err(err).Str("city", city).Msg("city switch failed")
		}
	}
	if err := sc.Err(); err != nil {
		log.Warn().Err(err).Msg("stopped reading city selection")
	}
}
