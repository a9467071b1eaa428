package cli

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/sadopc/medlog/internal/tracker"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	safeStyle    = cellStyle.Foreground(lipgloss.Color("#2ECC71"))
	waitStyle    = cellStyle.Foreground(lipgloss.Color("#F39C12"))
	overlapStyle = cellStyle.Foreground(lipgloss.Color("#E74C3C"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func (a *App) status() error {
	meds := a.engine.Medications()
	if len(meds) == 0 {
		a.printf("No medications registered.\n")
		return nil
	}

	now := a.now()
	states := make([]tracker.State, len(meds))
	t := newTable("ID", "MEDICATION", "CATEGORY", "INTERVAL", "STATUS", "LAST DOSE", "DETAIL", "COUNT")
	for i, m := range meds {
		st, err := a.engine.StatusAt(m.ID, now)
		if err != nil {
			return err
		}
		states[i] = st.State
		last := "-"
		if st.LastDose != nil {
			last = st.LastDose.Timestamp.In(a.loc).Format(clockLayout)
		}
		t.Row(m.ID, m.Name, m.Category, m.IntervalLabel(), st.State.String(), last,
			statusDetail(st, a.loc), strconv.Itoa(m.DoseCount))
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 4 && row >= 0 && row < len(states) {
			switch states[row] {
			case tracker.StateWait:
				return waitStyle
			case tracker.StateOverlap:
				return overlapStyle
			default:
				return safeStyle
			}
		}
		return cellStyle
	})

	a.printf("%s\n", t.Render())
	return nil
}

func (a *App) list() error {
	meds := a.engine.Medications()
	if len(meds) == 0 {
		a.printf("No medications registered.\n")
		return nil
	}
	t := newTable("ID", "MEDICATION", "CATEGORY", "INTERVAL", "COUNT", "PRESET")
	for _, m := range meds {
		preset := ""
		if m.IsPreset() {
			preset = "yes"
		}
		t.Row(m.ID, m.Name, m.Category, m.IntervalLabel(), strconv.Itoa(m.DoseCount), preset)
	}
	a.printf("%s\n", t.Render())
	return nil
}
