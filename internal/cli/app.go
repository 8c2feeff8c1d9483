package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/prayer-widget/internal/api"
	"github.com/smokyabdulrahman/prayer-widget/internal/cache"
	"github.com/smokyabdulrahman/prayer-widget/internal/clock"
	"github.com/smokyabdulrahman/prayer-widget/internal/config"
	"github.com/smokyabdulrahman/prayer-widget/internal/geo"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

// autoCity selects the city from IP geolocation.
const autoCity = "auto"

// newClock is the wall clock used by every command. Tests swap in a fake.
var newClock = func() clock.Clock { return clock.New() }

// detectLocation is geo.DetectLocation, swappable in tests.
var detectLocation = geo.DetectLocation

// app bundles the merged config and the data path a command needs.
type app struct {
	cfg      *config.Config
	clock    clock.Clock
	client   *api.Client
	provider api.Provider
	cache    *cache.Cache // nil when the cache could not be opened
	timeFmt  string       // Go layout
}

// newApp merges the config, sets up logging and wires the provider chain:
// the same-day cache in front of the document client.
func newApp(cmd *cobra.Command, defLevel zerolog.Level) (*app, error) {
	cfg, err := effectiveConfig(cmd)
	if err != nil {
		return nil, err
	}
	setupLogging(cmd.ErrOrStderr(), cfg.LogLevel, defLevel)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	layout, err := api.ParseLayout(cfg.Layout)
	if err != nil {
		return nil, err
	}

	client := api.NewClient()
	client.BaseURL = cfg.DataURL
	client.Layout = layout

	a := &app{
		cfg:      cfg,
		clock:    clock.In(newClock(), loc),
		client:   client,
		provider: api.CityProvider{Client: client},
		timeFmt:  goTimeFormat(cfg.TimeFormat),
	}

	c, err := cache.Open(cfg.CacheDir)
	if err != nil {
		// Non-fatal; every fetch goes upstream.
		log.Warn().Err(err).Msg("cache disabled")
	} else {
		a.cache = c
		a.provider = &cache.Provider{Inner: a.provider, Cache: c, Now: a.clock.Now}
	}
	return a, nil
}

// Close releases the cache.
func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Warn().Err(err).Msg("closing cache")
		}
	}
}

// city returns the configured city, resolving "auto" through IP
// geolocation matched against the cities the document offers.
func (a *app) city(ctx context.Context) (string, error) {
	if !strings.EqualFold(a.cfg.City, autoCity) {
		return a.cfg.City, nil
	}

	now := a.clock.Now()
	var detected *geo.Location
	if a.cache != nil {
		detected = a.cache.LoadGeo(now)
	}
	if detected == nil {
		loc, err := detectLocation(ctx)
		if err != nil {
			return "", fmt.Errorf("city auto-detection failed: %w", err)
		}
		detected = loc
		if a.cache != nil {
			if err := a.cache.SaveGeo(detected, now); err != nil {
				log.Warn().Err(err).Msg("failed to cache detected location")
			}
		}
	}

	doc, err := a.client.Fetch(ctx, now)
	if err != nil {
		return "", err
	}
	name, ok := geo.MatchCity(detected.City, doc.CityNames())
	if !ok {
		return "", fmt.Errorf("detected city %q has no prayer times; set one with --city (available: %s)",
			detected.City, strings.Join(doc.CityNames(), ", "))
	}
	log.Debug().Str("detected", detected.City).Str("city", name).Msg("city auto-detected")
	return name, nil
}

// schedule resolves the city and fetches its validated schedule for today.
func (a *app) schedule(ctx context.Context) (string, prayer.Schedule, error) {
	city, err := a.city(ctx)
	if err != nil {
		return "", prayer.Schedule{}, err
	}
	s, _, err := a.provider.Fetch(ctx, city, a.clock.Now())
	if err != nil {
		return "", prayer.Schedule{}, err
	}
	if err := s.Validate(); err != nil {
		return "", prayer.Schedule{}, fmt.Errorf("schedule for %s: %w", city, err)
	}
	return city, s, nil
}

// goTimeFormat maps the time_format setting to a Go layout.
func goTimeFormat(tf string) string {
	if tf == "12h" {
		return "3:04 PM"
	}
	return "15:04"
}

// openingPrayer returns the prayer whose time opened period p, or "" before
// Fajr.
func openingPrayer(p prayer.Period) string {
	switch p {
	case prayer.PreFajr:
		return ""
	case prayer.PostIsha:
		return prayer.Isha
	default:
		return prayer.AllNames[int(p)-1]
	}
}
