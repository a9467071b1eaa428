package cli

import (
	"fmt"
	"time"

	"github.com/sadopc/medlog/internal/tracker"
)

const clockLayout = "01-02 15:04"

// formatSpan renders a duration as "2h05m" or "12m", truncated to minutes.
func formatSpan(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}

// formatRemaining rounds up so a waiting medication never shows zero.
func formatRemaining(d time.Duration) string {
	if r := d % time.Minute; r != 0 {
		d += time.Minute - r
	}
	return formatSpan(d)
}

// statusDetail is the one-line explanation shown next to a state.
func statusDetail(st tracker.Status, loc *time.Location) string {
	switch st.State {
	case tracker.StateWait:
		return fmt.Sprintf("%s left, from %s", formatRemaining(st.Remaining), st.AvailableAt.In(loc).Format("15:04"))
	case tracker.StateOverlap:
		return fmt.Sprintf("%s taken, %s left", st.OverlapDose.DisplayName(), formatRemaining(st.OverlapRemaining))
	}
	if st.LastDose == nil {
		return "never taken"
	}
	return formatSpan(st.Elapsed) + " since last dose"
}
