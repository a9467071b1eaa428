package tracker

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Medications returns the registry, presets first.
func (e *Engine) Medications() []Medication {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.st.medications)
}

// Medication looks up a medication by id.
func (e *Engine) Medication(id string) (Medication, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := indexOfMedication(e.st.medications, id)
	if i < 0 {
		return Medication{}, false
	}
	return e.st.medications[i], true
}

// AddMedication registers a user medication. An empty category becomes
// DefaultCategory.
func (e *Engine) AddMedication(name string, intervalHours float64, category string) (Medication, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Medication{}, invalid("name", "must not be empty")
	}
	if err := validateInterval(intervalHours); err != nil {
		return Medication{}, err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var med Medication
	err := e.mutate(func(st *state) (bool, error) {
		med = Medication{
			ID:            e.uniqueID(st),
			Name:          name,
			IntervalHours: intervalHours,
			Category:      category,
		}
		st.medications = append(st.medications, med)
		return true, nil
	})
	if err != nil {
		return Medication{}, err
	}
	e.log.Info(context.Background(), "medication added", "id", med.ID, "name", med.Name)
	return med, nil
}

// RemoveMedication deletes the medication with id. History entries that
// reference it are kept as orphans. Removing an unknown id is a no-op.
func (e *Engine) RemoveMedication(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mutate(func(st *state) (bool, error) {
		i := indexOfMedication(st.medications, id)
		if i < 0 {
			return false, nil
		}
		st.medications = slices.Delete(st.medications, i, i+1)
		return true, nil
	})
}

// ResetDoseCount zeroes the dose counter of one medication. Unknown ids are
// ignored.
func (e *Engine) ResetDoseCount(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mutate(func(st *state) (bool, error) {
		i := indexOfMedication(st.medications, id)
		if i < 0 || st.medications[i].DoseCount == 0 {
			return false, nil
		}
		st.medications[i].DoseCount = 0
		return true, nil
	})
}

// ResetAllDoseCounts zeroes every dose counter.
func (e *Engine) ResetAllDoseCounts() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mutate(func(st *state) (bool, error) {
		changed := false
		for i := range st.medications {
			if st.medications[i].DoseCount != 0 {
				st.medications[i].DoseCount = 0
				changed = true
			}
		}
		return changed, nil
	})
}

// SeedPresets inserts missing presets and migrates the category of existing
// ones. It reports whether anything changed; a second run with the same list
// changes nothing.
func (e *Engine) SeedPresets(presets []Preset) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var changed bool
	err := e.mutate(func(st *state) (bool, error) {
		changed = seedPresets(st, presets)
		return changed, nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func PresetID(index int) string {
	return fmt.Sprintf("%s%d", presetPrefix, index)
}

func seedPresets(st *state, presets []Preset) bool {
	changed := false
	for i, p := range presets {
		id := PresetID(i)
		j := indexOfMedication(st.medications, id)
		if j < 0 {
			st.medications = append(st.medications, Medication{
				ID:            id,
				Name:          p.Name,
				IntervalHours: p.IntervalHours,
				Category:      p.Category,
			})
			changed = true
			continue
		}
		if st.medications[j].Category != p.Category {
			st.medications[j].Category = p.Category
			changed = true
		}
	}
	if sortPresetsFirst(st.medications) {
		changed = true
	}
	return changed
}

// sortPresetsFirst stably moves preset medications ahead of user ones and
// reports whether the order changed.
func sortPresetsFirst(meds []Medication) bool {
	seenUser := false
	ordered := true
	for _, m := range meds {
		if !m.IsPreset() {
			seenUser = true
		} else if seenUser {
			ordered = false
			break
		}
	}
	if ordered {
		return false
	}
	slices.SortStableFunc(meds, func(a, b Medication) int {
		switch {
		case a.IsPreset() && !b.IsPreset():
			return -1
		case !a.IsPreset() && b.IsPreset():
			return 1
		}
		return 0
	})
	return true
}

func validateInterval(h float64) error {
	if math.IsNaN(h) || math.IsInf(h, 0) || h <= 0 {
		return invalid("intervalHours", "must be a positive number")
	}
	return nil
}
