package tui

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/medlog/internal/export"
	"github.com/sadopc/medlog/internal/logging"
	"github.com/sadopc/medlog/internal/store"
	"github.com/sadopc/medlog/internal/tracker"
)

const defaultRefreshInterval = time.Minute

type options struct {
	refresh      time.Duration
	loc          *time.Location
	log          logging.Logger
	scheduleSpec string
	scheduleNext func() time.Time
}

// Option configures NewApp.
type Option func(*options)

// WithRefreshInterval sets how often statuses are recomputed.
func WithRefreshInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.refresh = d
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithScheduleInfo shows the dose-count reset schedule in Settings.
func WithScheduleInfo(spec string, next func() time.Time) Option {
	return func(o *options) {
		o.scheduleSpec = spec
		o.scheduleNext = next
	}
}

// App is the root Bubble Tea model.
type App struct {
	engine  *tracker.Engine
	backend store.Backend
	opts    options
	width   int
	height  int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	medications medicationsModel
	history     historyModel
	reports     reportsModel
	settings    settingsModel

	help      help.Model
	status    string
	statusErr bool
}

func NewApp(e *tracker.Engine, b store.Backend, opts ...Option) App {
	o := options{
		refresh: defaultRefreshInterval,
		loc:     time.Local,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	h := help.New()
	h.ShowAll = false

	settings := newSettingsModel(e, b, o.loc)
	settings.scheduleSpec = o.scheduleSpec
	settings.scheduleNext = o.scheduleNext

	return App{
		engine:      e,
		backend:     b,
		opts:        o,
		activeView:  viewMedications,
		medications: newMedicationsModel(e, o.loc),
		history:     newHistoryModel(e, o.loc),
		reports:     newReportsModel(e, o.loc),
		settings:    settings,
		help:        h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.refreshAll(),
		a.tickCmd(),
	)
}

func (a App) tickCmd() tea.Cmd {
	return tea.Tick(a.opts.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) refreshAll() tea.Cmd {
	return tea.Batch(
		a.medications.refresh(),
		a.history.refresh(),
		a.reports.refresh(),
		a.settings.refresh(),
	)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	ctx := context.Background()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.medications.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.reports.buildChart()
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewMedications
			return a, a.medications.refresh()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewHistory
			return a, a.history.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewReports
			return a, a.reports.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		return a, tea.Batch(a.tickCmd(), a.medications.refresh(), a.history.refresh())

	case RefreshMsg:
		a.opts.log.Debug(ctx, "external refresh")
		return a, a.refreshAll()

	case dataChangedMsg:
		a.status = msg.text
		a.statusErr = false
		a.opts.log.Info(ctx, "ui change", "detail", msg.text)
		return a, a.refreshAll()

	case medicationsDataMsg:
		a.medications.setCards(msg.cards)
		return a, nil

	case historyDataMsg:
		a.history.setEntries(msg)
		return a, nil

	case reportsDataMsg:
		a.reports.setData(msg)
		return a, nil

	case settingsDataMsg:
		a.settings.setData(msg)
		return a, nil

	case statusMsg:
		a.status = msg.text
		a.statusErr = msg.isError
		if msg.isError {
			a.opts.log.Warn(ctx, "ui action failed", "detail", msg.text)
		}
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusErr = false
		a.exportPicking = false
		a.opts.log.Info(ctx, "exported", "path", msg.path)
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewMedications:
		a.medications, cmd = a.medications.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewMedications:
		return a.medications.formActive
	case viewHistory:
		return a.history.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewMedications:
		return a.medications.refresh()
	case viewHistory:
		return a.history.refresh()
	case viewReports:
		return a.reports.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewMedications:
		content = a.medications.view()
	case viewHistory:
		content = a.history.view()
	case viewReports:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(1, a.height-headerHeight-footerHeight)

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("medlog")
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	clock := ""
	if a.engine != nil {
		clock = highlightStyle.Render(" " + a.engine.Now().In(a.opts.loc).Format("15:04"))
	}

	left := footerStyle.Render(helpView)
	right := status + clock

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"CSV", "JSON"}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// exportDir is the saved export directory, or the home directory.
func (a App) exportDir() string {
	if dir, err := a.backend.GetSetting(store.SettingExportDir); err == nil && dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return home
}

func (a App) doExport(format int) tea.Cmd {
	return func() tea.Msg {
		now := a.engine.Now().In(a.opts.loc)
		dir := a.exportDir()

		var path string
		if format == 0 {
			path = export.PathIn(dir, now, "csv")
			if err := export.ToCSV(a.engine.History(), a.engine.Medications(), a.opts.loc, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = export.PathIn(dir, now, "json")
			if err := export.ToJSON(a.engine, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path}
	}
}
