package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/medlog/internal/tracker"
)

// viewState represents the currently active view.
type viewState int

const (
	viewMedications viewState = iota
	viewHistory
	viewReports
	viewSettings
)

var viewNames = []string{"Medications", "History", "Reports", "Settings"}

// --- Messages ---

// RefreshMsg asks the running program to re-read engine state, e.g. after a
// scheduled job changed it from outside the UI.
type RefreshMsg struct{}

// dataChangedMsg follows every successful mutation made from the UI.
type dataChangedMsg struct {
	text string
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

func errStatus(prefix string, err error) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: fmt.Sprintf("%s: %v", prefix, err), isError: true}
	}
}

func changed(text string) tea.Cmd {
	return func() tea.Msg { return dataChangedMsg{text: text} }
}

// --- Helpers ---

// formatSpan renders a duration as "2h05m" or "12m".
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

func statusLine(st tracker.Status, loc *time.Location) string {
	switch st.State {
	case tracker.StateWait:
		return fmt.Sprintf("%s left (from %s)", formatRemaining(st.Remaining), st.AvailableAt.In(loc).Format("15:04"))
	case tracker.StateOverlap:
		return fmt.Sprintf("%s taken, %s left", st.OverlapDose.DisplayName(), formatRemaining(st.OverlapRemaining))
	}
	if st.LastDose == nil {
		return "never taken"
	}
	return formatSpan(st.Elapsed) + " since last dose"
}

// parseClock accepts "15:04" (today in loc) or a full date and time.
func parseClock(s string, now time.Time, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006/01/02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation("15:04", s, loc); err == nil {
		n := now.In(loc)
		return time.Date(n.Year(), n.Month(), n.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q (use 15:04 or 2006-01-02 15:04)", s)
}
