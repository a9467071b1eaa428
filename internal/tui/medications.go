package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/medlog/internal/tracker"
)

type medFormType int

const (
	formAddMedication medFormType = iota
	formRecordAt
	formConfirmDose
	formDeleteMedication
)

// medCard is one medication with its status at load time.
type medCard struct {
	med    tracker.Medication
	status tracker.Status
}

// pendingDose is a risky dose waiting for the user's answer.
type pendingDose struct {
	medicationID string
	at           time.Time
	prompt       string
}

type medicationsModel struct {
	engine *tracker.Engine
	loc    *time.Location
	width  int
	height int

	cards  []medCard
	cursor int

	formActive bool
	form       *huh.Form
	formType   medFormType
	target     string // medication id the open form acts on
	pending    *pendingDose

	// Form field pointers (survive value copies)
	formName     *string
	formInterval *string
	formCategory *string
	formTime     *string
	formConfirm  *bool
}

func newMedicationsModel(e *tracker.Engine, loc *time.Location) medicationsModel {
	name, interval, cat, at, ok := "", "4", tracker.Categories[0], "", false
	return medicationsModel{
		engine:       e,
		loc:          loc,
		formName:     &name,
		formInterval: &interval,
		formCategory: &cat,
		formTime:     &at,
		formConfirm:  &ok,
	}
}

func (m *medicationsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type medicationsDataMsg struct {
	cards []medCard
}

func (m medicationsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return medicationsDataMsg{cards: m.load()}
	}
}

func (m medicationsModel) load() []medCard {
	now := m.engine.Now()
	meds := m.engine.Medications()
	cards := make([]medCard, 0, len(meds))
	for _, med := range meds {
		st, err := m.engine.StatusAt(med.ID, now)
		if err != nil {
			continue
		}
		cards = append(cards, medCard{med: med, status: st})
	}
	return cards
}

func (m *medicationsModel) setCards(cards []medCard) {
	m.cards = cards
	if m.cursor >= len(m.cards) {
		m.cursor = max(0, len(m.cards)-1)
	}
}

func (m medicationsModel) selected() (medCard, bool) {
	if m.cursor < 0 || m.cursor >= len(m.cards) {
		return medCard{}, false
	}
	return m.cards[m.cursor], true
}

func (m medicationsModel) update(msg tea.Msg) (medicationsModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, keys.Down):
		if m.cursor < len(m.cards)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, keys.Record), key.Matches(keyMsg, keys.Enter):
		if c, ok := m.selected(); ok {
			return m.record(c.med, m.engine.Now())
		}
	case key.Matches(keyMsg, keys.RecordAt):
		if c, ok := m.selected(); ok {
			return m.showRecordAtForm(c.med)
		}
	case key.Matches(keyMsg, keys.New):
		return m.showAddForm()
	case key.Matches(keyMsg, keys.Delete):
		if c, ok := m.selected(); ok {
			if c.med.IsPreset() {
				return m, func() tea.Msg {
					return statusMsg{text: "Built-in medications cannot be deleted", isError: true}
				}
			}
			return m.showDeleteForm(c.med)
		}
	case key.Matches(keyMsg, keys.Reset):
		if c, ok := m.selected(); ok {
			if err := m.engine.ResetDoseCount(c.med.ID); err != nil {
				return m, errStatus("Reset failed", err)
			}
			return m, changed("Dose count reset for " + c.med.Name)
		}
	}
	return m, nil
}

// record runs the dose guard for med at the given time and either records
// right away or asks for confirmation first.
func (m medicationsModel) record(med tracker.Medication, at time.Time) (medicationsModel, tea.Cmd) {
	risk, err := m.engine.CheckDose(med.ID, at)
	if err != nil {
		return m, errStatus("Record failed", err)
	}
	if !risk.NeedsConfirmation() {
		return m.commitDose(med.ID, at)
	}

	m.pending = &pendingDose{medicationID: med.ID, at: at, prompt: risk.Message(med)}
	*m.formConfirm = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(med.Name + " at " + at.In(m.loc).Format("01-02 15:04")).
				Description(m.pending.prompt).
				Affirmative("Record").
				Negative("Cancel").
				Value(m.formConfirm),
		),
	).WithShowHelp(true)
	m.formType = formConfirmDose
	m.formActive = true
	return m, m.form.Init()
}

// resolvePending answers the confirmation opened by record.
func (m medicationsModel) resolvePending(confirmed bool) (medicationsModel, tea.Cmd) {
	p := m.pending
	m.pending = nil
	m.formActive = false
	m.form = nil
	if p == nil {
		return m, nil
	}
	if !confirmed {
		return m, func() tea.Msg { return statusMsg{text: "Dose not recorded"} }
	}
	return m.commitDose(p.medicationID, p.at)
}

func (m medicationsModel) commitDose(medicationID string, at time.Time) (medicationsModel, tea.Cmd) {
	h, err := m.engine.AddDoseAt(medicationID, at)
	if err != nil {
		return m, errStatus("Record failed", err)
	}
	return m, changed(fmt.Sprintf("Recorded %s at %s", h.DisplayName(), h.Timestamp.In(m.loc).Format("15:04")))
}

func (m medicationsModel) showAddForm() (medicationsModel, tea.Cmd) {
	*m.formName = ""
	*m.formInterval = "4"
	*m.formCategory = tracker.Categories[0]

	catOptions := make([]huh.Option[string], len(tracker.Categories))
	for i, c := range tracker.Categories {
		catOptions[i] = huh.NewOption(c, c)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(m.formName).Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("name is required")
				}
				return nil
			}),
			huh.NewInput().Title("Interval (hours)").Value(m.formInterval).Validate(func(s string) error {
				_, err := parseInterval(s)
				return err
			}),
			huh.NewSelect[string]().Title("Category").Options(catOptions...).Value(m.formCategory),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formType = formAddMedication
	m.formActive = true
	return m, m.form.Init()
}

func (m medicationsModel) showRecordAtForm(med tracker.Medication) (medicationsModel, tea.Cmd) {
	*m.formTime = m.engine.Now().In(m.loc).Format("15:04")
	m.target = med.ID

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Time taken").
				Description("15:04 for today, or 2006-01-02 15:04").
				Value(m.formTime).
				Validate(func(s string) error {
					_, err := parseClock(strings.TrimSpace(s), m.engine.Now(), m.loc)
					return err
				}),
		).Title(med.Name),
	).WithShowHelp(true).WithShowErrors(true)

	m.formType = formRecordAt
	m.formActive = true
	return m, m.form.Init()
}

func (m medicationsModel) showDeleteForm(med tracker.Medication) (medicationsModel, tea.Cmd) {
	*m.formConfirm = false
	m.target = med.ID

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Delete " + med.Name + "?").
				Description("Past doses stay in the history.").
				Affirmative("Delete").
				Negative("Cancel").
				Value(m.formConfirm),
		),
	).WithShowHelp(true)

	m.formType = formDeleteMedication
	m.formActive = true
	return m, m.form.Init()
}

func (m medicationsModel) updateForm(msg tea.Msg) (medicationsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			if m.formType == formConfirmDose {
				return m.resolvePending(false)
			}
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m.submitForm()
	}
	return m, cmd
}

func (m medicationsModel) submitForm() (medicationsModel, tea.Cmd) {
	m.formActive = false
	m.form = nil

	switch m.formType {
	case formAddMedication:
		h, err := parseInterval(*m.formInterval)
		if err != nil {
			return m, errStatus("Add failed", err)
		}
		med, err := m.engine.AddMedication(strings.TrimSpace(*m.formName), h, *m.formCategory)
		if err != nil {
			return m, errStatus("Add failed", err)
		}
		return m, changed("Added " + med.Name)

	case formRecordAt:
		med, ok := m.engine.Medication(m.target)
		if !ok {
			return m, nil
		}
		at, err := parseClock(strings.TrimSpace(*m.formTime), m.engine.Now(), m.loc)
		if err != nil {
			return m, errStatus("Record failed", err)
		}
		return m.record(med, at)

	case formConfirmDose:
		return m.resolvePending(*m.formConfirm)

	case formDeleteMedication:
		if !*m.formConfirm {
			return m, nil
		}
		med, _ := m.engine.Medication(m.target)
		if err := m.engine.RemoveMedication(m.target); err != nil {
			return m, errStatus("Delete failed", err)
		}
		return m, changed("Deleted " + med.Name)
	}
	return m, nil
}

func parseInterval(s string) (float64, error) {
	h, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || h <= 0 {
		return 0, errors.New("interval must be a positive number of hours")
	}
	return h, nil
}

func (m medicationsModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		title := titleStyle.Render("New Medication")
		switch m.formType {
		case formRecordAt:
			title = titleStyle.Render("Record Dose")
		case formConfirmDose:
			title = warningStyle.Bold(true).Render("Check Before Recording")
		case formDeleteMedication:
			title = titleStyle.Render("Delete Medication")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View())
		return activePanelStyle.Width(w).Render(content)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderSummary(w),
		m.renderList(w),
	)
}

func (m medicationsModel) renderSummary(w int) string {
	var safe, wait, overlap int
	for _, c := range m.cards {
		switch c.status.State {
		case tracker.StateWait:
			wait++
		case tracker.StateOverlap:
			overlap++
		default:
			safe++
		}
	}
	line := fmt.Sprintf("%s  %s  %s  %s",
		titleStyle.Render("Now"),
		safeStyle.Render(fmt.Sprintf("%d SAFE", safe)),
		waitStyle.Render(fmt.Sprintf("%d WAIT", wait)),
		overlapStyle.Render(fmt.Sprintf("%d OVERLAP", overlap)),
	)
	return panelStyle.Width(w).Render(line)
}

func (m medicationsModel) renderList(w int) string {
	title := titleStyle.Render("Medications")
	if len(m.cards) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No medications. Press n to add one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-20s %-9s %-6s %-10s %5s  %s", "Name", "Status", "Every", "Category", "Doses", "")))

	for i, c := range m.cards {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		badge := stateStyle(c.status.State).Render(fmt.Sprintf("%-9s", c.status.State))
		name := style.Render(fmt.Sprintf("%s%-20s", cursor, c.med.Name))
		rest := fmt.Sprintf(" %-6s %-10s %5d  %s",
			c.med.IntervalLabel(), c.med.Category, c.med.DoseCount,
			mutedStyle.Render(statusLine(c.status, m.loc)),
		)
		rows = append(rows, name+" "+badge+rest)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  r: record now  t: record at time  n: new  d: delete  z: reset count"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
