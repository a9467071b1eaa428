package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ExportVersion is written to every export.
const ExportVersion = "1.0"

// Export is the portable snapshot format.
type Export struct {
	Medications []Medication   `json:"medications"`
	History     []HistoryEntry `json:"history"`
	Version     string         `json:"version"`
	ExportedAt  time.Time      `json:"exportedAt"`
}

type ImportMode string

const (
	ImportMerge     ImportMode = "merge"
	ImportOverwrite ImportMode = "overwrite"
)

// ParseImportMode accepts "merge", "overwrite" or "" (merge).
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ImportMerge:
		return ImportMerge, nil
	case ImportOverwrite:
		return ImportOverwrite, nil
	}
	return "", invalid("mode", fmt.Sprintf("unknown import mode %q", s))
}

// ImportResult reports the outcome of ImportData. On failure Err is set and
// nothing was changed.
type ImportResult struct {
	Success bool
	Err     error

	// Medications and History count the items added (merge) or loaded
	// (overwrite). History excludes entries the retention setting drops.
	Medications int
	History     int
}

// ExportData serializes both collections.
func (e *Engine) ExportData() ([]byte, error) {
	e.mu.Lock()
	doc := Export{
		Medications: append([]Medication{}, e.st.medications...),
		History:     append([]HistoryEntry{}, e.st.history...),
		Version:     ExportVersion,
		ExportedAt:  e.now().UTC(),
	}
	e.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}

// ImportData validates data completely, then applies it in the given mode.
// Errors are reported in the result, never returned.
func (e *Engine) ImportData(data []byte, mode ImportMode) ImportResult {
	res := e.importData(data, mode)
	if res.Err != nil {
		e.log.Warn(context.Background(), "import failed", "mode", mode, "err", res.Err)
	} else {
		e.log.Info(context.Background(), "import finished", "mode", mode,
			"medications", res.Medications, "history", res.History)
	}
	return res
}

func (e *Engine) importData(data []byte, mode ImportMode) ImportResult {
	mode, err := ParseImportMode(string(mode))
	if err != nil {
		return ImportResult{Err: err}
	}
	meds, hist, err := decodeImport(data)
	if err != nil {
		return ImportResult{Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	res := ImportResult{Success: true}
	err = e.mutate(func(st *state) (bool, error) {
		changed := false
		switch mode {
		case ImportOverwrite:
			st.medications = meds
			st.history = hist
			res.Medications, res.History = len(meds), len(hist)
			changed = true
		default:
			for _, m := range meds {
				if indexOfMedication(st.medications, m.ID) < 0 {
					st.medications = append(st.medications, m)
					res.Medications++
				}
			}
			var cutoff time.Time
			if st.retentionMonths > 0 {
				cutoff = e.cutoff(st.retentionMonths)
			}
			var added []HistoryEntry
			for _, h := range hist {
				if indexOfEntry(st.history, h.ID) < 0 && !h.Timestamp.Before(cutoff) {
					added = append(added, h)
				}
			}
			if len(added) > 0 {
				st.history = append(added, st.history...)
				sortRecentFirst(st.history)
				res.History = len(added)
			}
			changed = res.Medications > 0 || res.History > 0
		}
		if seedPresets(st, e.presets) {
			changed = true
		}
		if backfillNames(st) > 0 {
			changed = true
		}
		return changed, nil
	})
	if err != nil {
		return ImportResult{Err: err}
	}
	if mode == ImportOverwrite {
		res.History = len(e.st.history)
	}
	return res
}

type importMedication struct {
	ID            *string  `json:"id"`
	Name          *string  `json:"name"`
	IntervalHours *float64 `json:"intervalHours"`
	Category      *string  `json:"category"`
	DoseCount     *int     `json:"doseCount"`
}

type importEntry struct {
	ID             *string `json:"id"`
	MedicationID   *string `json:"medicationId"`
	MedicationName *string `json:"medicationName"`
	Timestamp      *string `json:"timestamp"`
}

type importDoc struct {
	Medications json.RawMessage `json:"medications"`
	History     json.RawMessage `json:"history"`
}

func decodeImport(data []byte) ([]Medication, []HistoryEntry, error) {
	var doc importDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, &FormatError{Reason: "not a JSON object", Err: err}
	}
	if isAbsent(doc.Medications) || isAbsent(doc.History) {
		return nil, nil, &FormatError{Reason: "medications or history is missing"}
	}

	var rawMeds []importMedication
	if err := json.Unmarshal(doc.Medications, &rawMeds); err != nil {
		return nil, nil, &FormatError{Reason: "medications is not a list of medications", Err: err}
	}
	var rawHist []importEntry
	if err := json.Unmarshal(doc.History, &rawHist); err != nil {
		return nil, nil, &FormatError{Reason: "history is not a list of entries", Err: err}
	}

	meds := make([]Medication, 0, len(rawMeds))
	seen := make(map[string]struct{}, len(rawMeds))
	for i, r := range rawMeds {
		if r.ID == nil || *r.ID == "" {
			return nil, nil, &FormatError{Reason: fmt.Sprintf("medication %d has no id", i)}
		}
		if _, dup := seen[*r.ID]; dup {
			return nil, nil, &FormatError{Reason: fmt.Sprintf("medication id %q repeats", *r.ID)}
		}
		seen[*r.ID] = struct{}{}
		if r.Name == nil || strings.TrimSpace(*r.Name) == "" {
			return nil, nil, &FormatError{Reason: fmt.Sprintf("medication %q has no name", *r.ID)}
		}
		if r.IntervalHours == nil || validateInterval(*r.IntervalHours) != nil {
			return nil, nil, &FormatError{Reason: fmt.Sprintf("medication %q has no valid intervalHours", *r.ID)}
		}
		m := Medication{ID: *r.ID, Name: *r.Name, IntervalHours: *r.IntervalHours, Category: DefaultCategory}
		if r.Category != nil {
			m.Category = *r.Category
		}
		if r.DoseCount != nil {
			if *r.DoseCount < 0 {
				return nil, nil, &FormatError{Reason: fmt.Sprintf("medication %q has a negative doseCount", *r.ID)}
			}
			m.DoseCount = *r.DoseCount
		}
		meds = append(meds, m)
	}

	hist := make([]HistoryEntry, 0, len(rawHist))
	seen = make(map[string]struct{}, len(rawHist))
	for i, r := range rawHist {
		if r.ID == nil || *r.ID == "" {
			return nil, nil, &FormatError{Reason: fmt.Sprintf("history entry %d has no id", i)}
		}
		if _, dup := seen[*r.ID]; dup {
			return nil, nil, &FormatError{Reason: fmt.Sprintf("history id %q repeats", *r.ID)}
		}
		seen[*r.ID] = struct{}{}
		if r.MedicationID == nil || *r.MedicationID == "" {
			return nil, nil, &FormatError{Reason: fmt.Sprintf("history entry %q has no medicationId", *r.ID)}
		}
		if r.Timestamp == nil {
			return nil, nil, &FormatError{Reason: fmt.Sprintf("history entry %q has no timestamp", *r.ID)}
		}
		ts, err := time.Parse(time.RFC3339Nano, *r.Timestamp)
		if err != nil {
			return nil, nil, &FormatError{Reason: fmt.Sprintf("history entry %q has an invalid timestamp", *r.ID), Err: err}
		}
		h := HistoryEntry{ID: *r.ID, MedicationID: *r.MedicationID, Timestamp: ts.UTC()}
		if r.MedicationName != nil {
			h.MedicationName = *r.MedicationName
		}
		hist = append(hist, h)
	}
	return meds, hist, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
