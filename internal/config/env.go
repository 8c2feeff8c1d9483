package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces the environment overrides, e.g. PRAYER_WIDGET_CITY.
const EnvPrefix = "PRAYER_WIDGET_"

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// into the process environment. Variables already set are not overridden,
// and missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides c with every PRAYER_WIDGET_* variable that is set.
// Values go through Set, so they get the same validation as `config set`.
func (c *Config) ApplyEnv() error {
	for _, key := range ValidKeys {
		value, ok := os.LookupEnv(EnvName(key))
		if !ok {
			continue
		}
		if err := c.Set(key, value); err != nil {
			return fmt.Errorf("%s: %w", EnvName(key), err)
		}
	}
	return nil
}
