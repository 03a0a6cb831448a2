// Package config resolves runtime options from defaults, an optional YAML
// file, the environment (including a local .env file) and flags, in that
// order of increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Dicklesworthstone/perfmon/internal/procs"
	"github.com/Dicklesworthstone/perfmon/internal/sampler"
)

// Config carries runtime options for perfmon.
type Config struct {
	Interval   time.Duration
	Duration   time.Duration
	Continuous bool
	TUI        bool

	JSON    bool
	NDJSON  bool
	Out     string
	Compact bool
	Clear   bool

	Processes bool
	Top       int
	Sort      procs.SortKey
	DiskIO    bool
	Battery   bool
	Temps     bool
	TempTTL   time.Duration
	History   int

	LogLevel  string
	LogFormat string

	ConfigPath string
}

func Default() Config {
	return Config{
		Interval:   5 * time.Second,
		Clear:      true,
		Processes:  true,
		Top:        10,
		Sort:       procs.ByCPU,
		DiskIO:     true,
		Battery:    true,
		TempTTL:    sampler.DefaultTempTTL,
		History:    sampler.DefaultHistorySize,
		LogLevel:   "warn",
		LogFormat:  "text",
		ConfigPath: DefaultPath(),
	}
}

// DefaultPath is $XDG_CONFIG_HOME/perfmon/config.yaml (or the platform
// equivalent). It is empty when no config directory can be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "perfmon", "config.yaml")
}

// FromFlags resolves the configuration for the given command-line arguments,
// loading a .env file from the working directory first if one exists.
func FromFlags(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return load(args, os.Getenv, os.Stderr)
}

func load(args []string, getenv func(string) string, usage io.Writer) (Config, error) {
	// First pass only discovers --config; errors surface in the second.
	scratch := Default()
	_ = newFlagSet(&scratch, io.Discard).Parse(args)

	cfg := Default()
	cfg.ConfigPath = scratch.ConfigPath
	if err := applyFile(&cfg, cfg.ConfigPath); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}

	if err := newFlagSet(&cfg, usage).Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newFlagSet(cfg *Config, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("perfmon", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "path to YAML config file")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "refresh interval in continuous and TUI modes")
	fs.DurationVar(&cfg.Duration, "duration", cfg.Duration, "stop continuous mode after this long (0 = forever)")
	fs.BoolVar(&cfg.Continuous, "continuous", cfg.Continuous, "run continuously")
	fs.BoolVar(&cfg.TUI, "tui", cfg.TUI, "launch the interactive TUI")
	fs.BoolVar(&cfg.JSON, "json", cfg.JSON, "output JSON")
	fs.BoolVar(&cfg.NDJSON, "ndjson", cfg.NDJSON, "output newline-delimited JSON (one object per line)")
	fs.StringVar(&cfg.Out, "out", cfg.Out, "write output to file (appends in continuous mode)")
	fs.BoolVar(&cfg.Compact, "compact", cfg.Compact, "compact report layout")
	fs.IntVar(&cfg.Top, "top", cfg.Top, "number of processes to show")
	fs.Func("sort-by", "sort processes by cpu|memory", func(v string) error {
		cfg.Sort = procs.ParseSortKey(v)
		return nil
	})
	fs.BoolVar(&cfg.Temps, "temps", cfg.Temps, "collect CPU temperature (needs pre-authorized sudo on macOS)")
	fs.DurationVar(&cfg.TempTTL, "temp-ttl", cfg.TempTTL, "how long a temperature reading is reused")
	fs.IntVar(&cfg.History, "history", cfg.History, "samples kept for trend sparklines")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug|info|warn|error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text|json")

	negate := func(dst *bool) func(string) error {
		return func(string) error {
			*dst = false
			return nil
		}
	}
	fs.BoolFunc("no-processes", "do not collect or show top processes", negate(&cfg.Processes))
	fs.BoolFunc("no-disk-io", "hide disk I/O totals and rates", negate(&cfg.DiskIO))
	fs.BoolFunc("no-battery", "hide battery section", negate(&cfg.Battery))
	fs.BoolFunc("no-clear", "do not clear the screen between reports", negate(&cfg.Clear))
	return fs
}

// Validate rejects values the sampler cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Interval <= 0:
		return fmt.Errorf("config: interval must be positive, got %v", c.Interval)
	case c.Duration < 0:
		return fmt.Errorf("config: duration must not be negative, got %v", c.Duration)
	case c.Top < 0:
		return fmt.Errorf("config: top must not be negative, got %d", c.Top)
	case c.History < 1:
		return fmt.Errorf("config: history must be at least 1, got %d", c.History)
	case c.TempTTL <= 0:
		return fmt.Errorf("config: temp-ttl must be positive, got %v", c.TempTTL)
	}
	return nil
}

// SampleOptions maps the configuration onto one engine tick.
func (c Config) SampleOptions() sampler.Options {
	return sampler.Options{
		IncludeProcesses:   c.Processes,
		TopN:               c.Top,
		SortBy:             c.Sort,
		IncludeBattery:     c.Battery,
		TemperatureEnabled: c.Temps,
	}
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("PERFMON_INTERVAL"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("config: PERFMON_INTERVAL: %w", err)
		}
		cfg.Interval = d
	}
	if v := getenv("PERFMON_TOP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: PERFMON_TOP: %w", err)
		}
		cfg.Top = n
	}
	if v := getenv("PERFMON_SORT"); v != "" {
		cfg.Sort = procs.ParseSortKey(v)
	}
	if v := getenv("PERFMON_TEMPS"); v != "" {
		cfg.Temps = envBool(v)
	}
	if v := getenv("PERFMON_BATTERY"); v != "" {
		cfg.Battery = envBool(v)
	}
	if v := getenv("PERFMON_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("PERFMON_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	return nil
}

// envBool accepts strconv booleans plus yes/no and on/off. Anything else
// counts as true unless it is "0".
func envBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	switch v {
	case "no", "off":
		return false
	case "yes", "on":
		return true
	}
	return v != "0"
}

// parseSeconds accepts Go durations and bare numbers of seconds.
func parseSeconds(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	return time.ParseDuration(v + "s")
}
