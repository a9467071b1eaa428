package config

import (
	"flag"
	"io"
	"time"
)

// globalFlags holds the flags accepted before the command name.
type globalFlags struct {
	configFile string
	set        map[string]bool

	dbPath     string
	backend    string
	logFile    string
	logLevel   string
	refresh    time.Duration
	countReset string
	retention  int

	rest []string
}

func parseFlags(args []string) (*globalFlags, error) {
	fl := &globalFlags{set: map[string]bool{}}

	fs := flag.NewFlagSet("medlog", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&fl.configFile, "config", "", "path to JSON config file")
	fs.StringVar(&fl.dbPath, "db", "", "database file (sqlite) or directory (badger)")
	fs.StringVar(&fl.backend, "backend", "", "storage backend: sqlite or badger")
	fs.StringVar(&fl.logFile, "log-file", "", "log file path")
	fs.StringVar(&fl.logLevel, "log-level", "", "debug, info, warn or error")
	fs.DurationVar(&fl.refresh, "refresh", 0, "status refresh interval")
	fs.StringVar(&fl.countReset, "count-reset", "", "cron spec for resetting dose counts")
	fs.IntVar(&fl.retention, "retention", 0, "retention months used when none is stored")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { fl.set[f.Name] = true })
	fl.rest = fs.Args()
	return fl, nil
}

// apply copies only the flags that were given on the command line.
func (fl *globalFlags) apply(cfg *Config) {
	if fl.set["db"] {
		cfg.DBPath = fl.dbPath
	}
	if fl.set["backend"] {
		cfg.Backend = fl.backend
	}
	if fl.set["log-file"] {
		cfg.LogFile = fl.logFile
	}
	if fl.set["log-level"] {
		cfg.LogLevel = fl.logLevel
	}
	if fl.set["refresh"] {
		cfg.RefreshInterval = fl.refresh
	}
	if fl.set["count-reset"] {
		cfg.CountResetSchedule = fl.countReset
	}
	if fl.set["retention"] {
		cfg.RetentionDefault = fl.retention
	}
}
