package tracker

import (
	"strconv"
	"strings"
	"time"
)

const (
	presetPrefix = "preset-"

	// DefaultCategory is assigned to user medications added without one.
	DefaultCategory = "その他"
	// UnknownMedicationName is snapshotted when a dose references a missing medication.
	UnknownMedicationName = "不明な薬"
	// DeletedMedicationName is the display label for an orphan entry with no snapshot.
	DeletedMedicationName = "削除された薬"

	// DefaultRetentionMonths applies when the store holds no retention record.
	DefaultRetentionMonths = 3
)

type Medication struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	IntervalHours float64 `json:"intervalHours"`
	Category      string  `json:"category"`
	DoseCount     int     `json:"doseCount"`
}

// IsPreset reports whether m was seeded from the built-in preset list.
func (m Medication) IsPreset() bool {
	return IsPresetID(m.ID)
}

// Interval returns the minimum spacing between two doses.
func (m Medication) Interval() time.Duration {
	return hoursToDuration(m.IntervalHours)
}

// IntervalLabel formats the interval as hours, e.g. "4h" or "0.5h".
func (m Medication) IntervalLabel() string {
	return strconv.FormatFloat(m.IntervalHours, 'f', -1, 64) + "h"
}

func IsPresetID(id string) bool {
	return strings.HasPrefix(id, presetPrefix)
}

type HistoryEntry struct {
	ID           string `json:"id"`
	MedicationID string `json:"medicationId"`
	// MedicationName is the name at record time. Empty on legacy entries
	// until BackfillNames repairs them.
	MedicationName string    `json:"medicationName,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// DisplayName returns the snapshot name, or the deleted-medication label.
func (h HistoryEntry) DisplayName() string {
	if h.MedicationName != "" {
		return h.MedicationName
	}
	return DeletedMedicationName
}

// Preset is a built-in medication definition. Its id is derived from its
// position in the preset list.
type Preset struct {
	Name          string
	IntervalHours float64
	Category      string
}

// DefaultPresets is the built-in list seeded on every open.
var DefaultPresets = []Preset{
	{Name: "ロキソニンS", IntervalHours: 4, Category: "解熱鎮痛剤"},
	{Name: "イブA錠", IntervalHours: 4, Category: "解熱鎮痛剤"},
	{Name: "カロナールA", IntervalHours: 4, Category: "解熱鎮痛剤"},
	{Name: "ブスコパンA錠", IntervalHours: 4, Category: "鎮痙剤"},
	{Name: "葛根湯", IntervalHours: 4, Category: "漢方薬"},
}

// Categories offered when adding a medication.
var Categories = []string{"解熱鎮痛剤", "胃腸薬", "整腸剤", "風邪薬", "アレルギー薬", "サプリメント", DefaultCategory}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
