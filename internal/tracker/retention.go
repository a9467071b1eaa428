package tracker

import (
	"context"
	"slices"
	"time"
)

// RetentionMonths returns the automatic cleanup horizon; 0 disables it.
func (e *Engine) RetentionMonths() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.retentionMonths
}

// SetRetentionMonths stores the cleanup horizon and applies it immediately.
func (e *Engine) SetRetentionMonths(months int) error {
	if months < 0 {
		return invalid("retentionMonths", "must not be negative")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mutate(func(st *state) (bool, error) {
		if st.retentionMonths == months {
			return false, nil
		}
		st.retentionMonths = months
		return true, nil
	})
}

// ClearOldHistory removes entries older than monthsToKeep calendar months
// before now, independently of the stored retention setting, and returns how
// many were removed.
func (e *Engine) ClearOldHistory(monthsToKeep int) (int, error) {
	if monthsToKeep < 0 {
		return 0, invalid("monthsToKeep", "must not be negative")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var removed int
	err := e.mutate(func(st *state) (bool, error) {
		removed = pruneBefore(st, e.cutoff(monthsToKeep))
		return removed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		e.log.Info(context.Background(), "old history cleared", "removed", removed, "months", monthsToKeep)
	}
	return removed, nil
}

// Cutoff returns the instant monthsAgo calendar months before now in the
// engine's location.
func (e *Engine) Cutoff(monthsAgo int) time.Time {
	return e.cutoff(monthsAgo)
}

func (e *Engine) cutoff(monthsAgo int) time.Time {
	return MonthsBefore(e.now(), monthsAgo, e.loc)
}

// MonthsBefore subtracts n calendar months from t as seen in loc. A day that
// does not exist in the target month rolls forward into the next one, so
// 31 March minus one month is 3 March in a common year.
func MonthsBefore(t time.Time, n int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).AddDate(0, -n, 0)
}

func (e *Engine) applyRetention(st *state) int {
	if st.retentionMonths <= 0 || len(st.history) == 0 {
		return 0
	}
	n := pruneBefore(st, e.cutoff(st.retentionMonths))
	if n > 0 {
		e.log.Info(context.Background(), "auto-cleanup removed old history",
			"removed", n, "months", st.retentionMonths)
	}
	return n
}

func pruneBefore(st *state, cutoff time.Time) int {
	before := len(st.history)
	st.history = slices.DeleteFunc(st.history, func(h HistoryEntry) bool {
		return h.Timestamp.Before(cutoff)
	})
	return before - len(st.history)
}
