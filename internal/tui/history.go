package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/medlog/internal/tracker"
)

type historyModel struct {
	engine *tracker.Engine
	loc    *time.Location
	width  int
	height int

	entries []tracker.HistoryEntry
	now     time.Time
	cursor  int

	formActive bool
	form       *huh.Form
	editing    bool // false: delete confirmation
	target     string

	formTime    *string
	formConfirm *bool
}

func newHistoryModel(e *tracker.Engine, loc *time.Location) historyModel {
	at, ok := "", false
	return historyModel{
		engine:      e,
		loc:         loc,
		formTime:    &at,
		formConfirm: &ok,
	}
}

func (h *historyModel) setSize(w, ht int) {
	h.width = w
	h.height = ht
}

type historyDataMsg struct {
	entries []tracker.HistoryEntry
	now     time.Time
}

func (h historyModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return historyDataMsg{entries: h.engine.History(), now: h.engine.Now()}
	}
}

func (h *historyModel) setEntries(msg historyDataMsg) {
	h.entries = msg.entries
	h.now = msg.now
	if h.cursor >= len(h.entries) {
		h.cursor = max(0, len(h.entries)-1)
	}
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	if h.formActive && h.form != nil {
		return h.updateForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || len(h.entries) == 0 {
		return h, nil
	}
	switch {
	case key.Matches(keyMsg, keys.Up):
		if h.cursor > 0 {
			h.cursor--
		}
	case key.Matches(keyMsg, keys.Down):
		if h.cursor < len(h.entries)-1 {
			h.cursor++
		}
	case key.Matches(keyMsg, keys.Edit), key.Matches(keyMsg, keys.Enter):
		return h.showEditForm(h.entries[h.cursor])
	case key.Matches(keyMsg, keys.Delete):
		return h.showDeleteForm(h.entries[h.cursor])
	}
	return h, nil
}

func (h historyModel) showEditForm(e tracker.HistoryEntry) (historyModel, tea.Cmd) {
	*h.formTime = e.Timestamp.In(h.loc).Format("2006-01-02 15:04")
	h.target = e.ID
	h.editing = true

	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Time taken").
				Description("2006-01-02 15:04, or 15:04 for today").
				Value(h.formTime).
				Validate(func(s string) error {
					_, err := parseClock(strings.TrimSpace(s), h.engine.Now(), h.loc)
					return err
				}),
		).Title(e.DisplayName()),
	).WithShowHelp(true).WithShowErrors(true)

	h.formActive = true
	return h, h.form.Init()
}

func (h historyModel) showDeleteForm(e tracker.HistoryEntry) (historyModel, tea.Cmd) {
	*h.formConfirm = false
	h.target = e.ID
	h.editing = false

	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s at %s?", e.DisplayName(), e.Timestamp.In(h.loc).Format("01-02 15:04"))).
				Affirmative("Delete").
				Negative("Cancel").
				Value(h.formConfirm),
		),
	).WithShowHelp(true)

	h.formActive = true
	return h, h.form.Init()
}

func (h historyModel) updateForm(msg tea.Msg) (historyModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			h.formActive = false
			h.form = nil
			return h, nil
		}
	}

	form, cmd := h.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		h.form = f
	}

	if h.form.State == huh.StateCompleted {
		return h.submitForm()
	}
	return h, cmd
}

func (h historyModel) submitForm() (historyModel, tea.Cmd) {
	h.formActive = false
	h.form = nil

	if h.editing {
		return h.editEntry(h.target, *h.formTime)
	}
	if !*h.formConfirm {
		return h, nil
	}
	return h.deleteEntry(h.target)
}

func (h historyModel) editEntry(id, input string) (historyModel, tea.Cmd) {
	at, err := parseClock(strings.TrimSpace(input), h.engine.Now(), h.loc)
	if err != nil {
		return h, errStatus("Edit failed", err)
	}
	if err := h.engine.UpdateDose(id, at); err != nil {
		return h, errStatus("Edit failed", err)
	}
	return h, changed("Dose moved to " + at.In(h.loc).Format("01-02 15:04"))
}

func (h historyModel) deleteEntry(id string) (historyModel, tea.Cmd) {
	if err := h.engine.RemoveDose(id); err != nil {
		return h, errStatus("Delete failed", err)
	}
	return h, changed("Dose deleted")
}

func (h historyModel) view() string {
	w := h.width - 4

	if h.formActive && h.form != nil {
		title := titleStyle.Render("Delete Dose")
		if h.editing {
			title = titleStyle.Render("Edit Dose")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", h.form.View())
		return activePanelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render(fmt.Sprintf("History (%d)", len(h.entries)))
	if len(h.entries) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No doses recorded yet."),
		)
		return panelStyle.Width(w).Render(content)
	}

	visible := max(1, h.height-9)
	start := 0
	if h.cursor >= visible {
		start = h.cursor - visible + 1
	}
	end := min(len(h.entries), start+visible)

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-16s %-20s %s", "Taken", "Medication", "Ago")))

	lastDay := ""
	for i := start; i < end; i++ {
		e := h.entries[i]
		local := e.Timestamp.In(h.loc)
		day := local.Format("2006-01-02")
		stamp := local.Format("15:04")
		if day != lastDay {
			stamp = local.Format("01-02 15:04")
			lastDay = day
		}

		cursor := "  "
		style := normalItemStyle
		if i == h.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		name := e.DisplayName()
		if e.MedicationName == "" {
			name = mutedStyle.Render(name)
		}
		ago := ""
		if !h.now.IsZero() && h.now.After(e.Timestamp) {
			ago = formatSpan(h.now.Sub(e.Timestamp))
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-16s ", cursor, stamp))+fmt.Sprintf("%-20s %s", name, mutedStyle.Render(ago)))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  e: edit time  d: delete"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
