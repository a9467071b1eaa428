package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sadopc/medlog/internal/logging"
)

// Config holds runtime settings.
type Config struct {
	// DBPath is a file for sqlite and a directory for badger. Empty selects
	// the backend's default location.
	DBPath  string
	Backend string

	LogFile  string
	LogLevel string

	// RefreshInterval is how often the TUI recomputes dose status.
	RefreshInterval time.Duration
	// CountResetSchedule is a cron spec for zeroing dose counters; empty
	// disables it.
	CountResetSchedule string
	// RetentionDefault is used when the store has no retention record yet.
	RetentionDefault int
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.DBPath = ""
	c.Backend = "sqlite"
	c.LogFile = defaultLogFile()
	c.LogLevel = "info"
	c.RefreshInterval = time.Minute
	c.CountResetSchedule = ""
	c.RetentionDefault = 3
}

// Load builds a Config from defaults, JSON, environment and the global flags
// at the front of args. It returns the arguments left after the flags.
func Load(args []string) (*Config, []string, error) {
	fl, err := parseFlags(args)
	if err != nil {
		return nil, nil, err
	}

	cfg := &Config{}
	cfg.LoadDefaults()

	path, explicit := configPath(fl.configFile)
	if path != "" {
		if err := parseJSON(cfg, path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, nil, err
			}
		}
	}
	if err := parseEnv(cfg); err != nil {
		return nil, nil, err
	}
	fl.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fl.rest, nil
}

// Validate checks value ranges. The cron spec is checked by the scheduler.
func (c *Config) Validate() error {
	switch c.Backend {
	case "sqlite", "badger":
	default:
		return fmt.Errorf("backend must be sqlite or badger, got %q", c.Backend)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %s", c.RefreshInterval)
	}
	if c.RetentionDefault < 0 {
		return fmt.Errorf("retention_default must not be negative, got %d", c.RetentionDefault)
	}
	return nil
}

// configPath resolves the JSON file. explicit reports whether the user named
// it, in which case a missing file is an error.
func configPath(flagValue string) (path string, explicit bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if v, ok := os.LookupEnv(ConfigEnv); ok && v != "" {
		return v, true
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(dir, "medlog", "config.json"), false
}

func defaultLogFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "medlog.log")
	}
	return filepath.Join(dir, "medlog", "medlog.log")
}
