// Package config provides persistent configuration for the prayer-widget CLI.
//
// Configuration is stored as JSON at ~/.config/prayer-widget/config.json
// (XDG-compliant). The merge priority is: CLI flags > environment > config
// file > defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/prayer-widget/internal/api"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
	"github.com/smokyabdulrahman/prayer-widget/internal/refresh"
)

const (
	configDirName  = "prayer-widget"
	configFileName = "config.json"
)

// DefaultCity is the city shown when nothing else is configured.
const DefaultCity = "Göteborg"

// ValidKeys lists all config keys that can be set via `config set`.
var ValidKeys = []string{
	"city",
	"data_url", "layout",
	"timezone",
	"poll_offset", "poll_attempts", "poll_interval",
	"time_format",
	"prayers",
	"cache_dir",
	"mqtt_broker", "mqtt_topic",
	"log_level",
}

// Config holds all user-configurable settings.
// Zero values mean "not set" (use defaults).
type Config struct {
	City         string `json:"city,omitempty"`
	DataURL      string `json:"data_url,omitempty"`
	Layout       string `json:"layout,omitempty"`   // "shared" or "daily"
	Timezone     string `json:"timezone,omitempty"` // IANA name; empty means local
	PollOffset   string `json:"poll_offset,omitempty"`
	PollAttempts *int   `json:"poll_attempts,omitempty"` // pointer so we can distinguish "not set" from 0
	PollInterval string `json:"poll_interval,omitempty"` // Go duration, e.g. "15m"
	TimeFormat   string `json:"time_format,omitempty"`   // "12h" or "24h"
	Prayers      string `json:"prayers,omitempty"`       // comma-separated list
	CacheDir     string `json:"cache_dir,omitempty"`
	MQTTBroker   string `json:"mqtt_broker,omitempty"`
	MQTTTopic    string `json:"mqtt_topic,omitempty"`
	LogLevel     string `json:"log_level,omitempty"`
}

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	attempts := refresh.DefaultAttempts
	return Config{
		City:         DefaultCity,
		DataURL:      api.DefaultBaseURL,
		Layout:       string(api.LayoutShared),
		PollOffset:   refresh.DefaultOffset,
		PollAttempts: &attempts,
		PollInterval: refresh.DefaultInterval.String(),
		TimeFormat:   "24h",
		MQTTTopic:    "prayer-widget",
	}
}

// ApplyDefaults fills every unset field from Defaults.
func (c *Config) ApplyDefaults() {
	d := Defaults()
	if c.City == "" {
		c.City = d.City
	}
	if c.DataURL == "" {
		c.DataURL = d.DataURL
	}
	if c.Layout == "" {
		c.Layout = d.Layout
	}
	if c.PollOffset == "" {
		c.PollOffset = d.PollOffset
	}
	if c.PollAttempts == nil {
		c.PollAttempts = d.PollAttempts
	}
	if c.PollInterval == "" {
		c.PollInterval = d.PollInterval
	}
	if c.TimeFormat == "" {
		c.TimeFormat = d.TimeFormat
	}
	if c.MQTTTopic == "" {
		c.MQTTTopic = d.MQTTTopic
	}
}

// Dir returns the config directory path.
// It respects $XDG_CONFIG_HOME if set, otherwise uses ~/.config/.
func Dir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config file from disk.
// If the file does not exist, it returns an empty Config (not an error).
// If the file exists but is invalid JSON, it returns an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	return LoadFrom(path)
}

// LoadFrom reads the config from a specific file path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Config{}
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the config to disk, creating the directory if needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}

	return c.SaveTo(path)
}

// SaveTo writes the config to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Reset deletes the config file.
func Reset() error {
	path, err := Path()
	if err != nil {
		return err
	}

	return ResetAt(path)
}

// ResetAt deletes the config file at a specific path.
func ResetAt(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// Set sets a config key to the given value.
// It validates the key name and parses the value into the correct type.
func (c *Config) Set(key, value string) error {
	switch key {
	case "city":
		c.City = strings.TrimSpace(value)
	case "data_url":
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("invalid data_url %q: must start with http:// or https://", value)
		}
		c.DataURL = value
	case "layout":
		if _, err := api.ParseLayout(value); err != nil {
			return err
		}
		c.Layout = value
	case "timezone":
		if _, err := time.LoadLocation(value); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", value, err)
		}
		c.Timezone = value
	case "poll_offset":
		if _, err := prayer.ParseTimeToday(value, time.Now()); err != nil {
			return fmt.Errorf("invalid poll_offset %q: must be HH:MM", value)
		}
		c.PollOffset = value
	case "poll_attempts":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid poll_attempts %q: must be an integer", value)
		}
		if v < 1 || v > 12 {
			return fmt.Errorf("invalid poll_attempts %q: must be between 1 and 12", value)
		}
		c.PollAttempts = &v
	case "poll_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid poll_interval %q: must be a duration like 15m", value)
		}
		if d < time.Minute {
			return fmt.Errorf("invalid poll_interval %q: must be at least 1m", value)
		}
		c.PollInterval = value
	case "time_format":
		if value != "12h" && value != "24h" {
			return fmt.Errorf("invalid time_format %q: must be \"12h\" or \"24h\"", value)
		}
		c.TimeFormat = value
	case "prayers":
		// Validate each prayer name.
		names := strings.Split(value, ",")
		for _, n := range names {
			n = strings.TrimSpace(n)
			if !isValidPrayerName(n) {
				return fmt.Errorf("invalid prayer name %q in prayers list", n)
			}
		}
		c.Prayers = value
	case "cache_dir":
		c.CacheDir = value
	case "mqtt_broker":
		c.MQTTBroker = value
	case "mqtt_topic":
		if value == "" || strings.ContainsAny(value, "#+") {
			return fmt.Errorf("invalid mqtt_topic %q: must be non-empty without wildcards", value)
		}
		c.MQTTTopic = strings.Trim(value, "/")
	case "log_level":
		if _, err := zerolog.ParseLevel(value); err != nil || value == "" {
			return fmt.Errorf("invalid log_level %q: must be one of trace, debug, info, warn, error", value)
		}
		c.LogLevel = value
	default:
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys, ", "))
	}

	return nil
}

// Get returns the string value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "city":
		return c.City, nil
	case "data_url":
		return c.DataURL, nil
	case "layout":
		return c.Layout, nil
	case "timezone":
		return c.Timezone, nil
	case "poll_offset":
		return c.PollOffset, nil
	case "poll_attempts":
		if c.PollAttempts == nil {
			return "", nil
		}
		return strconv.Itoa(*c.PollAttempts), nil
	case "poll_interval":
		return c.PollInterval, nil
	case "time_format":
		return c.TimeFormat, nil
	case "prayers":
		return c.Prayers, nil
	case "cache_dir":
		return c.CacheDir, nil
	case "mqtt_broker":
		return c.MQTTBroker, nil
	case "mqtt_topic":
		return c.MQTTTopic, nil
	case "log_level":
		return c.LogLevel, nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

func isValidPrayerName(name string) bool {
	for _, n := range prayer.AllNames {
		if n == name {
			return true
		}
	}
	return false
}

// PollAttemptsOrDefault returns the poll attempts value, falling back to the
// given default.
func (c *Config) PollAttemptsOrDefault(def int) int {
	if c.PollAttempts != nil {
		return *c.PollAttempts
	}
	return def
}

// PollIntervalDuration parses PollInterval. An empty value yields the
// refresh default.
func (c *Config) PollIntervalDuration() (time.Duration, error) {
	if c.PollInterval == "" {
		return refresh.DefaultInterval, nil
	}
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid poll_interval %q: %w", c.PollInterval, err)
	}
	return d, nil
}

// Location returns the configured timezone, or time.Local when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SelectedPrayers returns the prayers to display, in schedule order.
func (c *Config) SelectedPrayers() []string {
	if c.Prayers == "" {
		return prayer.AllNames
	}
	want := make(map[string]bool)
	for _, n := range strings.Split(c.Prayers, ",") {
		want[strings.TrimSpace(n)] = true
	}
	var out []string
	for _, n := range prayer.AllNames {
		if want[n] {
			out = append(out, n)
		}
	}
	return out
}
