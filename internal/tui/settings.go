package tui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/medlog/internal/store"
	"github.com/sadopc/medlog/internal/tracker"
)

var (
	retentionChoices = []int{0, 3, 6, 12, 24}
	clearChoices     = []int{3, 6, 12, 24}
)

type settingsModel struct {
	engine  *tracker.Engine
	backend store.Backend
	loc     *time.Location
	width   int
	height  int

	settings  []store.Setting
	retention int

	scheduleSpec string
	scheduleNext func() time.Time

	formActive bool
	form       *huh.Form
	clearing   bool // false: preferences form

	// Form values as pointers (survive value copies)
	formRetention *int
	formExportDir *string
	formClear     *int
	formConfirm   *bool
}

func newSettingsModel(e *tracker.Engine, b store.Backend, loc *time.Location) settingsModel {
	ret, dir, clr, ok := 0, "", 0, false
	return settingsModel{
		engine:        e,
		backend:       b,
		loc:           loc,
		formRetention: &ret,
		formExportDir: &dir,
		formClear:     &clr,
		formConfirm:   &ok,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings  []store.Setting
	retention int
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, _ := s.backend.GetAllSettings()
		return settingsDataMsg{settings: settings, retention: s.engine.RetentionMonths()}
	}
}

func (s *settingsModel) setData(msg settingsDataMsg) {
	s.settings = msg.settings
	s.retention = msg.retention
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		case key.Matches(msg, keys.Clear):
			return s.showClearForm()
		}
	}
	return s, nil
}

func monthsLabel(n int) string {
	if n == 0 {
		return "Off"
	}
	return fmt.Sprintf("%d months", n)
}

// monthOptions builds select options from choices, keeping current selectable
// even when it was set elsewhere to a value outside the list.
func monthOptions(choices []int, current int) []huh.Option[int] {
	var opts []huh.Option[int]
	found := false
	for _, n := range choices {
		opts = append(opts, huh.NewOption(monthsLabel(n), n))
		found = found || n == current
	}
	if !found {
		opts = append(opts, huh.NewOption(monthsLabel(current), current))
	}
	return opts
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.formRetention = s.retention
	*s.formExportDir = s.getVal(store.SettingExportDir, "")

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Keep history for").
				Description("Older doses are deleted automatically.").
				Options(monthOptions(retentionChoices, s.retention)...).
				Value(s.formRetention),
			huh.NewInput().
				Title("Export directory").
				Description("Empty means your home directory.").
				Value(s.formExportDir),
		).Title("Preferences"),
	).WithShowHelp(true).WithShowErrors(true)

	s.clearing = false
	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) showClearForm() (settingsModel, tea.Cmd) {
	*s.formClear = s.clearMonths()
	*s.formConfirm = false

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Delete doses older than").
				Options(monthOptions(clearChoices, *s.formClear)...).
				Value(s.formClear),
			huh.NewConfirm().
				Title("Delete now?").
				Description("This cannot be undone.").
				Affirmative("Delete").
				Negative("Cancel").
				Value(s.formConfirm),
		).Title("Clear History"),
	).WithShowHelp(true)

	s.clearing = true
	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		if s.clearing {
			if !*s.formConfirm {
				return s, nil
			}
			return s.clearHistory(*s.formClear)
		}
		return s.savePreferences(*s.formRetention, *s.formExportDir)
	}

	return s, cmd
}

func (s settingsModel) savePreferences(retention int, exportDir string) (settingsModel, tea.Cmd) {
	if err := s.backend.SetSetting(store.SettingExportDir, exportDir); err != nil {
		return s, errStatus("Save failed", err)
	}
	if retention == s.retention {
		return s, tea.Batch(s.refresh(), func() tea.Msg { return statusMsg{text: "Settings saved"} })
	}
	if err := s.engine.SetRetentionMonths(retention); err != nil {
		return s, errStatus("Save failed", err)
	}
	return s, changed("History kept for " + monthsLabel(retention))
}

// clearHistory deletes doses older than months and remembers the choice.
func (s settingsModel) clearHistory(months int) (settingsModel, tea.Cmd) {
	if err := s.backend.SetSetting(store.SettingClearMonths, strconv.Itoa(months)); err != nil {
		return s, errStatus("Save failed", err)
	}
	n, err := s.engine.ClearOldHistory(months)
	if err != nil {
		return s, errStatus("Clear failed", err)
	}
	return s, changed(fmt.Sprintf("Deleted %d doses older than %d months", n, months))
}

func (s settingsModel) clearMonths() int {
	n, err := strconv.Atoi(s.getVal(store.SettingClearMonths, ""))
	if err != nil || n < 0 {
		return tracker.DefaultRetentionMonths
	}
	return n
}

func (s settingsModel) getVal(k, fallback string) string {
	for _, st := range s.settings {
		if st.Key == k {
			return st.Value
		}
	}
	v, err := s.backend.GetSetting(k)
	if err != nil {
		return fallback
	}
	return v
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	row := func(label, value string) string {
		return fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(24).Render(label), highlightStyle.Render(value))
	}

	exportDir := s.getVal(store.SettingExportDir, "")
	if exportDir == "" {
		exportDir = "~"
	}

	rows := []string{
		title,
		"",
		row("Keep history", monthsLabel(s.retention)),
		row("Clear older than", monthsLabel(s.clearMonths())),
		row("Export directory", exportDir),
		row("Dose count reset", s.scheduleLabel()),
		"",
		mutedStyle.Render("  enter: edit  c: clear old history now"),
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (s settingsModel) scheduleLabel() string {
	if s.scheduleSpec == "" {
		return "Off"
	}
	if s.scheduleNext == nil {
		return s.scheduleSpec
	}
	next := s.scheduleNext()
	if next.IsZero() {
		return s.scheduleSpec
	}
	return fmt.Sprintf("%s (next %s)", s.scheduleSpec, next.In(s.loc).Format("01-02 15:04"))
}
