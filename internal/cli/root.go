package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smokyabdulrahman/prayer-widget/internal/config"
)

// Global flags shared across all subcommands.
var (
	FlagCity       string
	FlagDataURL    string
	FlagLayout     string
	FlagTimezone   string
	FlagJSON       bool
	FlagCacheDir   string
	FlagTimeFormat string
	FlagLogLevel   string
)

// loadedConfig holds the config loaded during PersistentPreRunE.
// Available to all subcommand handlers.
var loadedConfig *config.Config

// NewRootCmd creates the root command for the prayer-widget CLI.
// The version parameter is set by the calling binary via ldflags.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "prayer-widget",
		Short:   "Prayer times widget",
		Long:    "Shows today's prayer times for a city, counts down to the next prayer and keeps itself up to date from a published schedule.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.ApplyEnv(); err != nil {
				return err
			}
			loadedConfig = cfg
			return nil
		},
		// Default action: show today's prayer schedule.
		RunE:          runToday,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(PrintVersion(version))

	// Register global persistent flags.
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&FlagCity, "city", "", `City to show, or "auto" to detect it from your IP (overrides config)`)
	pf.StringVar(&FlagDataURL, "data-url", "", "Prayer times document host (overrides config)")
	pf.StringVar(&FlagLayout, "layout", "", "Document layout: shared or daily (overrides config)")
	pf.StringVar(&FlagTimezone, "timezone", "", "IANA timezone for the schedule (default: local)")
	pf.BoolVar(&FlagJSON, "json", false, "Output as JSON (where supported)")
	pf.StringVar(&FlagCacheDir, "cache-dir", "", "Cache directory (default: ~/.cache/prayer-widget/)")
	pf.StringVar(&FlagTimeFormat, "time-format", "", "Time format: 12h or 24h (overrides config)")
	pf.StringVar(&FlagLogLevel, "log-level", "", "Log level: trace, debug, info, warn, error (overrides config)")

	// Register subcommands.
	rootCmd.AddCommand(newNextCmd())
	rootCmd.AddCommand(newPeriodCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// PrintVersion prints the version string in the expected format.
func PrintVersion(version string) string {
	return fmt.Sprintf("prayer-widget %s\n", version)
}

// effectiveConfig returns the merged configuration values,
// applying the priority: CLI flags > environment > config file > defaults.
// It uses cobra's Changed() to detect whether a flag was explicitly set.
func effectiveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := loadedConfig
	if cfg == nil {
		empty := config.Config{}
		cfg = &empty
	}

	flags := cmd.Flags()
	root := cmd.Root().PersistentFlags()

	// Flag values go through Set so they get the same validation as
	// `config set`.
	overrides := []struct {
		flag, key string
		value     *string
	}{
		{"city", "city", &FlagCity},
		{"data-url", "data_url", &FlagDataURL},
		{"layout", "layout", &FlagLayout},
		{"timezone", "timezone", &FlagTimezone},
		{"cache-dir", "cache_dir", &FlagCacheDir},
		{"time-format", "time_format", &FlagTimeFormat},
		{"log-level", "log_level", &FlagLogLevel},
	}
	for _, o := range overrides {
		if !flagWasSet(flags, root, o.flag) {
			continue
		}
		if err := cfg.Set(o.key, *o.value); err != nil {
			return nil, fmt.Errorf("--%s: %w", o.flag, err)
		}
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// flagWasSet checks if a flag was explicitly set on either the local or persistent flag set.
func flagWasSet(local, persistent *pflag.FlagSet, name string) bool {
	if f := local.Lookup(name); f != nil && f.Changed {
		return true
	}
	if f := persistent.Lookup(name); f != nil && f.Changed {
		return true
	}
	return false
}

// setupLogging sends human-readable zerolog output to w. level falls back
// to def when empty.
func setupLogging(w io.Writer, level string, def zerolog.Level) {
	lvl := def
	if level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			lvl = parsed
		}
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(w),
	}).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
