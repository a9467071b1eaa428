// Package config loads runtime configuration for medlog.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -config, MEDLOG_CONFIG, or
//     <user config dir>/medlog/config.json when that file exists.
//  3. Environment variables (MEDLOG_*).
//  4. Global command-line flags, which override everything else.
//
// # JSON schema
//
// Durations may be strings like "30s" or integer nanoseconds:
//
//	{
//	  "db_path": "/home/me/.config/medlog/medlog.db",
//	  "backend": "sqlite",
//	  "log_file": "/tmp/medlog.log",
//	  "log_level": "debug",
//	  "refresh_interval": "1m",
//	  "count_reset_schedule": "0 0 1 * *",
//	  "retention_default": 3
//	}
package config
