package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Duration accepts "90s"-style strings or integer nanoseconds in JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		d.Duration = time.Duration(val)
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// jsonConfig is the on-disk shape. Pointer fields distinguish "absent" from
// zero so a file can set only what it cares about.
type jsonConfig struct {
	DBPath             *string   `json:"db_path"`
	Backend            *string   `json:"backend"`
	LogFile            *string   `json:"log_file"`
	LogLevel           *string   `json:"log_level"`
	RefreshInterval    *Duration `json:"refresh_interval"`
	CountResetSchedule *string   `json:"count_reset_schedule"`
	RetentionDefault   *int      `json:"retention_default"`
}

// parseJSON overlays cfg with the values present in the file at path.
func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if jc.DBPath != nil {
		cfg.DBPath = *jc.DBPath
	}
	if jc.Backend != nil {
		cfg.Backend = *jc.Backend
	}
	if jc.LogFile != nil {
		cfg.LogFile = *jc.LogFile
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.RefreshInterval != nil {
		cfg.RefreshInterval = jc.RefreshInterval.Duration
	}
	if jc.CountResetSchedule != nil {
		cfg.CountResetSchedule = *jc.CountResetSchedule
	}
	if jc.RetentionDefault != nil {
		cfg.RetentionDefault = *jc.RetentionDefault
	}
	return nil
}
