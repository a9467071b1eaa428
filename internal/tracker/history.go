package tracker

import (
	"context"
	"slices"
	"time"
)

// History returns every entry, most recent first.
func (e *Engine) History() []HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := slices.Clone(e.st.history)
	sortRecentFirst(out)
	return out
}

// HistoryFor returns the entries of one medication, most recent first.
func (e *Engine) HistoryFor(medicationID string) []HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []HistoryEntry
	for _, h := range e.st.history {
		if h.MedicationID == medicationID {
			out = append(out, h)
		}
	}
	sortRecentFirst(out)
	return out
}

// LastDose returns the most recent entry for a medication, or nil.
func (e *Engine) LastDose(medicationID string) *HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return lastDose(e.st.history, func(h HistoryEntry) bool {
		return h.MedicationID == medicationID
	})
}

// LastDoseForCategory returns the most recent entry across every medication
// currently in category, or nil.
func (e *Engine) LastDoseForCategory(category string) *HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastForCategory(category, "")
}

func (e *Engine) lastForCategory(category, excludeID string) *HistoryEntry {
	ids := make(map[string]struct{})
	for _, m := range e.st.medications {
		if m.Category == category && m.ID != excludeID {
			ids[m.ID] = struct{}{}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return lastDose(e.st.history, func(h HistoryEntry) bool {
		_, ok := ids[h.MedicationID]
		return ok
	})
}

// lastDose picks the latest matching entry; on equal timestamps the one
// stored first wins, since new doses are prepended.
func lastDose(hist []HistoryEntry, match func(HistoryEntry) bool) *HistoryEntry {
	var best *HistoryEntry
	for i := range hist {
		if !match(hist[i]) {
			continue
		}
		if best == nil || hist[i].Timestamp.After(best.Timestamp) {
			h := hist[i]
			best = &h
		}
	}
	return best
}

// AddDose records a dose taken now.
func (e *Engine) AddDose(medicationID string) (HistoryEntry, error) {
	return e.AddDoseAt(medicationID, e.now())
}

// AddDoseAt records a dose taken at the given time. It never refuses on
// interval grounds; use CheckDose first to decide whether to ask the user.
func (e *Engine) AddDoseAt(medicationID string, at time.Time) (HistoryEntry, error) {
	if at.IsZero() {
		return HistoryEntry{}, invalid("timestamp", "must be a valid instant")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var entry HistoryEntry
	err := e.mutate(func(st *state) (bool, error) {
		entry = HistoryEntry{
			ID:             e.uniqueID(st),
			MedicationID:   medicationID,
			MedicationName: UnknownMedicationName,
			Timestamp:      at.UTC(),
		}
		if i := indexOfMedication(st.medications, medicationID); i >= 0 {
			entry.MedicationName = st.medications[i].Name
			st.medications[i].DoseCount++
		}
		st.history = slices.Insert(st.history, 0, entry)
		return true, nil
	})
	if err != nil {
		return HistoryEntry{}, err
	}
	e.log.Info(context.Background(), "dose recorded",
		"entry", entry.ID, "medication", medicationID, "at", entry.Timestamp)
	return entry, nil
}

// Entry looks up a history entry by id.
func (e *Engine) Entry(id string) (HistoryEntry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := indexOfEntry(e.st.history, id)
	if i < 0 {
		return HistoryEntry{}, false
	}
	return e.st.history[i], true
}

// RemoveDose deletes a history entry. Unknown ids are ignored.
func (e *Engine) RemoveDose(entryID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mutate(func(st *state) (bool, error) {
		i := indexOfEntry(st.history, entryID)
		if i < 0 {
			return false, nil
		}
		st.history = slices.Delete(st.history, i, i+1)
		return true, nil
	})
}

// UpdateDose replaces the timestamp of an existing entry.
func (e *Engine) UpdateDose(entryID string, ts time.Time) error {
	if ts.IsZero() {
		return invalid("timestamp", "must be a valid instant")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mutate(func(st *state) (bool, error) {
		i := indexOfEntry(st.history, entryID)
		if i < 0 {
			return false, invalid("entry", "no history entry "+entryID)
		}
		st.history[i].Timestamp = ts.UTC()
		return true, nil
	})
}

// BackfillNames fills missing name snapshots from the current registry and
// returns how many entries were repaired.
func (e *Engine) BackfillNames() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var n int
	err := e.mutate(func(st *state) (bool, error) {
		n = backfillNames(st)
		return n > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func backfillNames(st *state) int {
	if len(st.history) == 0 || len(st.medications) == 0 {
		return 0
	}
	names := make(map[string]string, len(st.medications))
	for _, m := range st.medications {
		names[m.ID] = m.Name
	}
	n := 0
	for i := range st.history {
		if st.history[i].MedicationName != "" {
			continue
		}
		if name, ok := names[st.history[i].MedicationID]; ok && name != "" {
			st.history[i].MedicationName = name
			n++
		}
	}
	return n
}

// Status evaluates a medication at the current time.
func (e *Engine) Status(medicationID string) (Status, error) {
	return e.StatusAt(medicationID, e.now())
}

// StatusAt evaluates a medication at now.
func (e *Engine) StatusAt(medicationID string, now time.Time) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := indexOfMedication(e.st.medications, medicationID)
	if i < 0 {
		return Status{}, invalid("medication", "no medication "+medicationID)
	}
	med := e.st.medications[i]
	last := lastDose(e.st.history, func(h HistoryEntry) bool { return h.MedicationID == med.ID })
	cat := e.lastForCategory(med.Category, "")
	return Evaluate(last, cat, med.IntervalHours, now), nil
}

// CheckDose applies the record-dose guard for a dose of medicationID at time
// at. It does not mutate anything.
func (e *Engine) CheckDose(medicationID string, at time.Time) (Risk, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := indexOfMedication(e.st.medications, medicationID)
	if i < 0 {
		return RiskNone, invalid("medication", "no medication "+medicationID)
	}
	med := e.st.medications[i]
	last := lastDose(e.st.history, func(h HistoryEntry) bool { return h.MedicationID == med.ID })
	other := e.lastForCategory(med.Category, med.ID)
	return CheckDose(last, other, med.IntervalHours, at), nil
}
