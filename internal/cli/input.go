package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
)

// huhConfirm shows a yes/no prompt on the terminal.
func huhConfirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}

var timeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006/01/02 15:04",
}

// parseTime accepts RFC 3339, a local date and time, or a bare HH:MM that
// refers to today.
func parseTime(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation("15:04", s, loc); err == nil {
		n := now.In(loc)
		return time.Date(n.Year(), n.Month(), n.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339, \"2006-01-02 15:04\" or \"15:04\"", s)
}
