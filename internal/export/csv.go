package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/medlog/internal/tracker"
)

// ToCSV writes the dose history as a spreadsheet-friendly table, newest
// first. The gap column is the time since the previous dose of the same
// medication.
func ToCSV(history []tracker.HistoryEntry, meds []tracker.Medication, loc *time.Location, path string) error {
	if loc == nil {
		loc = time.Local
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "Medication", "Category", "Taken At", "Interval (h)", "Gap (s)", "Gap"}); err != nil {
		return err
	}

	byID := make(map[string]tracker.Medication, len(meds))
	for _, m := range meds {
		byID[m.ID] = m
	}
	gaps := previousGaps(history)

	for i, h := range history {
		category, interval := "", ""
		if m, ok := byID[h.MedicationID]; ok {
			category = m.Category
			interval = strconv.FormatFloat(m.IntervalHours, 'f', -1, 64)
		}
		gapSecs, gap := "", ""
		if g, ok := gaps[i]; ok {
			secs := int64(g / time.Second)
			gapSecs = strconv.FormatInt(secs, 10)
			gap = formatDuration(secs)
		}

		row := []string{
			h.ID,
			h.DisplayName(),
			category,
			h.Timestamp.In(loc).Format(time.RFC3339),
			interval,
			gapSecs,
			gap,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// previousGaps maps each row index of a recent-first history to the time
// elapsed since the preceding dose of the same medication.
func previousGaps(history []tracker.HistoryEntry) map[int]time.Duration {
	gaps := make(map[int]time.Duration)
	older := make(map[string]int)
	for i := len(history) - 1; i >= 0; i-- {
		id := history[i].MedicationID
		if j, ok := older[id]; ok {
			gaps[i] = history[i].Timestamp.Sub(history[j].Timestamp)
		}
		older[id] = i
	}
	return gaps
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
