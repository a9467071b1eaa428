package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variable names.
const (
	ConfigEnv           = "MEDLOG_CONFIG"
	DBPathEnv           = "MEDLOG_DB_PATH"
	BackendEnv          = "MEDLOG_BACKEND"
	LogFileEnv          = "MEDLOG_LOG_FILE"
	LogLevelEnv         = "MEDLOG_LOG_LEVEL"
	RefreshIntervalEnv  = "MEDLOG_REFRESH_INTERVAL"
	CountResetEnv       = "MEDLOG_COUNT_RESET"
	RetentionDefaultEnv = "MEDLOG_RETENTION_DEFAULT"
)

// parseEnv overlays cfg with every MEDLOG_* variable that is set.
func parseEnv(cfg *Config) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{DBPathEnv, &cfg.DBPath},
		{BackendEnv, &cfg.Backend},
		{LogFileEnv, &cfg.LogFile},
		{LogLevelEnv, &cfg.LogLevel},
		{CountResetEnv, &cfg.CountResetSchedule},
	}
	for _, s := range strs {
		if v, ok := os.LookupEnv(s.name); ok {
			*s.dst = v
		}
	}

	if v, ok := os.LookupEnv(RefreshIntervalEnv); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", RefreshIntervalEnv, err)
		}
		cfg.RefreshInterval = d
	}
	if v, ok := os.LookupEnv(RetentionDefaultEnv); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", RetentionDefaultEnv, err)
		}
		cfg.RetentionDefault = n
	}
	return nil
}
