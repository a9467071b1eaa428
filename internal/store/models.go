package store

import "errors"

// ErrNotFound is returned for a missing setting or record.
var ErrNotFound = errors.New("not found")

// Setting keys for presentation preferences.
const (
	SettingClearMonths = "clear_months"
	SettingExportDir   = "export_dir"
)

// defaultSettings are written on first open when absent.
var defaultSettings = []Setting{
	{Key: SettingClearMonths, Value: "3"},
	{Key: SettingExportDir, Value: ""},
}

type Setting struct {
	Key   string
	Value string
}
