package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Backend names accepted by Open.
const (
	KindSQLite = "sqlite"
	KindBadger = "badger"
)

// Backend is what the rest of the program needs from a store: named records
// for the tracker engine and string settings for the UI.
type Backend interface {
	Load(keys ...string) (map[string][]byte, error)
	Save(records map[string][]byte) error
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	GetAllSettings() ([]Setting, error)
	Close() error
}

var (
	_ Backend = (*Store)(nil)
	_ Backend = (*Badger)(nil)
)

// Open opens the backend of the given kind at path. An empty path selects
// DefaultPath(kind).
func Open(kind, path string) (Backend, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = KindSQLite
	}
	if path == "" {
		p, err := DefaultPath(kind)
		if err != nil {
			return nil, err
		}
		path = p
	}

	switch kind {
	case KindSQLite:
		return New(path)
	case KindBadger:
		return NewBadger(path)
	}
	return nil, fmt.Errorf("unknown store backend %q", kind)
}

// DefaultPath returns the default location for a backend: a file for
// sqlite, a directory for badger.
func DefaultPath(kind string) (string, error) {
	switch kind {
	case KindBadger:
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(cfg, "medlog", "badger"), nil
	default:
		return DefaultDBPath()
	}
}
