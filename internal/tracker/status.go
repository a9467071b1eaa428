package tracker

import "time"

// State is the display state of a medication at a point in time.
type State int

const (
	StateSafe State = iota
	StateWait
	StateOverlap
)

func (s State) String() string {
	switch s {
	case StateWait:
		return "WAIT"
	case StateOverlap:
		return "OVERLAP"
	default:
		return "SAFE"
	}
}

// Status is the result of Evaluate.
type Status struct {
	State State

	// LastDose is the medication's own most recent dose, nil if none.
	LastDose *HistoryEntry
	// Elapsed is the time since LastDose; zero when LastDose is nil.
	Elapsed time.Duration

	// Remaining and AvailableAt are set for StateWait only.
	Remaining   time.Duration
	AvailableAt time.Time

	// OverlapDose is the same-category dose causing StateOverlap, and
	// OverlapRemaining the time until it leaves the interval window.
	OverlapDose      *HistoryEntry
	OverlapRemaining time.Duration
}

// Evaluate computes the status of a medication with the given interval from
// its own last dose and the most recent dose in its category. It is a pure
// function and must be re-run as now advances.
//
// WAIT dominates OVERLAP: the category check is only consulted once the
// medication's own interval has elapsed.
func Evaluate(lastDose, lastForCategory *HistoryEntry, intervalHours float64, now time.Time) Status {
	interval := hoursToDuration(intervalHours)
	st := Status{State: StateSafe, LastDose: lastDose}

	if lastDose != nil {
		st.Elapsed = now.Sub(lastDose.Timestamp)
		if st.Elapsed < interval {
			st.State = StateWait
			st.Remaining = interval - st.Elapsed
			st.AvailableAt = lastDose.Timestamp.Add(interval)
			return st
		}
	}

	if lastForCategory == nil {
		return st
	}
	if lastDose != nil && lastForCategory.ID == lastDose.ID {
		return st
	}
	since := now.Sub(lastForCategory.Timestamp)
	if since < interval {
		st.State = StateOverlap
		st.OverlapDose = lastForCategory
		st.OverlapRemaining = interval - since
	}
	return st
}

// Risk is the outcome of the record-dose guard.
type Risk int

const (
	RiskNone Risk = iota
	// RiskWithinInterval: the medication's own interval has not elapsed at the
	// chosen time.
	RiskWithinInterval
	// RiskCategoryOverlap: another medication of the same category was taken
	// within the interval before the chosen time.
	RiskCategoryOverlap
)

func (r Risk) String() string {
	switch r {
	case RiskWithinInterval:
		return "within-interval"
	case RiskCategoryOverlap:
		return "category-overlap"
	default:
		return "none"
	}
}

// Message explains the risk for a dose of m, for use in a confirmation prompt.
func (r Risk) Message(m Medication) string {
	switch r {
	case RiskWithinInterval:
		return "The " + m.IntervalLabel() + " interval for " + m.Name + " has not passed yet. Record anyway?"
	case RiskCategoryOverlap:
		return "Another " + m.Category + " medication was taken within the last " + m.IntervalLabel() + ". Record anyway?"
	}
	return ""
}

// NeedsConfirmation reports whether the caller should confirm before recording.
func (r Risk) NeedsConfirmation() bool {
	return r != RiskNone
}

// CheckDose decides whether recording a dose at time at is risky. lastDose is
// the medication's own latest dose; otherCategoryDose is the latest dose of a
// different medication in the same category. Only doses strictly before at
// count. CheckDose never blocks anything: AddDose records unconditionally.
func CheckDose(lastDose, otherCategoryDose *HistoryEntry, intervalHours float64, at time.Time) Risk {
	interval := hoursToDuration(intervalHours)
	within := func(e *HistoryEntry) bool {
		if e == nil {
			return false
		}
		d := at.Sub(e.Timestamp)
		return d > 0 && d < interval
	}
	if within(lastDose) {
		return RiskWithinInterval
	}
	if within(otherCategoryDose) {
		return RiskCategoryOverlap
	}
	return RiskNone
}
