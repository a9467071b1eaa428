package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sadopc/medlog/internal/tracker"
)

// Exporter produces a serialized snapshot.
type Exporter interface {
	ExportData() ([]byte, error)
}

// Importer applies a serialized snapshot.
type Importer interface {
	ImportData(data []byte, mode tracker.ImportMode) tracker.ImportResult
}

// ToJSON writes the snapshot produced by src to path.
func ToJSON(src Exporter, path string) error {
	data, err := src.ExportData()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

// FromJSON reads path and imports it into dst. A read failure is reported
// in the result like any other import failure.
func FromJSON(dst Importer, path string, mode tracker.ImportMode) tracker.ImportResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return tracker.ImportResult{Err: fmt.Errorf("read json file: %w", err)}
	}
	return dst.ImportData(data, mode)
}

// FileName returns a timestamped file name such as
// medlog-20250615-090000.json.
func FileName(now time.Time, ext string) string {
	return fmt.Sprintf("medlog-%s.%s", now.Format("20060102-150405"), ext)
}

// PathIn joins dir with a timestamped file name, falling back to the
// working directory when dir is empty.
func PathIn(dir string, now time.Time, ext string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, FileName(now, ext))
}
