package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/medlog/internal/tracker"
)

type reportMode int

const (
	reportDaily reportMode = iota
	reportWeekly
)

type reportsModel struct {
	engine *tracker.Engine
	loc    *time.Location
	width  int
	height int

	mode    reportMode
	offset  int // periods back from the current one
	now     time.Time
	history []tracker.HistoryEntry
	meds    []tracker.Medication

	chart barchart.Model
}

func newReportsModel(e *tracker.Engine, loc *time.Location) reportsModel {
	return reportsModel{
		engine: e,
		loc:    loc,
		chart:  barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	now     time.Time
	history []tracker.HistoryEntry
	meds    []tracker.Medication
}

func (r reportsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return reportsDataMsg{
			now:     r.engine.Now(),
			history: r.engine.History(),
			meds:    r.engine.Medications(),
		}
	}
}

func (r *reportsModel) setData(msg reportsDataMsg) {
	r.now = msg.now
	r.history = msg.history
	r.meds = msg.meds
	r.buildChart()
}

// buckets returns the start of each chart bar and the end of the last one.
// Daily mode shows 7 days, weekly mode 8 weeks starting on Monday.
func (r reportsModel) buckets() ([]time.Time, time.Time) {
	now := r.now
	if now.IsZero() {
		now = time.Now()
	}
	local := now.In(r.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.loc)

	var starts []time.Time
	switch r.mode {
	case reportWeekly:
		weekday := today.Weekday()
		if weekday == time.Sunday {
			weekday = 7
		}
		thisWeek := today.AddDate(0, 0, -int(weekday-time.Monday))
		first := thisWeek.AddDate(0, 0, -7*(7+8*r.offset))
		for i := 0; i < 8; i++ {
			starts = append(starts, first.AddDate(0, 0, 7*i))
		}
		return starts, starts[len(starts)-1].AddDate(0, 0, 7)
	default:
		first := today.AddDate(0, 0, -6-7*r.offset)
		for i := 0; i < 7; i++ {
			starts = append(starts, first.AddDate(0, 0, i))
		}
		return starts, starts[len(starts)-1].AddDate(0, 0, 1)
	}
}

// counts tallies doses per bucket and medication name.
func (r reportsModel) counts(starts []time.Time, end time.Time) []map[string]int {
	out := make([]map[string]int, len(starts))
	for i := range out {
		out[i] = make(map[string]int)
	}
	for _, h := range r.history {
		ts := h.Timestamp.In(r.loc)
		if ts.Before(starts[0]) || !ts.Before(end) {
			continue
		}
		i := sort.Search(len(starts), func(i int) bool { return starts[i].After(ts) }) - 1
		out[i][h.DisplayName()]++
	}
	return out
}

// colorFor keeps a medication's colour stable across redraws.
func (r reportsModel) colorFor(name string) lipgloss.Color {
	for i, m := range r.meds {
		if m.Name == name {
			return seriesColors[i%len(seriesColors)]
		}
	}
	return colorMuted
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			r.buildChart()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			r.buildChart()
		case key.Matches(msg, keys.Enter):
			if r.mode == reportDaily {
				r.mode = reportWeekly
			} else {
				r.mode = reportDaily
			}
			r.offset = 0
			r.buildChart()
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	starts, end := r.buckets()
	counts := r.counts(starts, end)

	var bars []barchart.BarData
	for i, start := range starts {
		label := start.Format("Mon 02")
		if r.mode == reportWeekly {
			label = start.Format("Jan 02")
		}

		names := make([]string, 0, len(counts[i]))
		for name := range counts[i] {
			names = append(names, name)
		}
		sort.Strings(names)

		var values []barchart.BarValue
		for _, name := range names {
			values = append(values, barchart.BarValue{
				Name:  name,
				Value: float64(counts[i][name]),
				Style: lipgloss.NewStyle().Foreground(r.colorFor(name)),
			})
		}
		if len(values) == 0 {
			values = []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		}

		bars = append(bars, barchart.BarData{
			Label:  label,
			Values: values,
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

type medTotal struct {
	name  string
	doses int
	last  time.Time
}

// totals summarises the visible range per medication, most doses first.
func (r reportsModel) totals() []medTotal {
	starts, end := r.buckets()
	byName := make(map[string]*medTotal)
	for _, h := range r.history {
		if h.Timestamp.Before(starts[0]) || !h.Timestamp.Before(end) {
			continue
		}
		name := h.DisplayName()
		t, ok := byName[name]
		if !ok {
			t = &medTotal{name: name}
			byName[name] = t
		}
		t.doses++
		if h.Timestamp.After(t.last) {
			t.last = h.Timestamp
		}
	}
	out := make([]medTotal, 0, len(byName))
	for _, t := range byName {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].doses != out[j].doses {
			return out[i].doses > out[j].doses
		}
		return out[i].name < out[j].name
	})
	return out
}

func (r reportsModel) view() string {
	w := r.width - 4

	dailyTab := inactiveTabStyle.Render("Daily")
	weeklyTab := inactiveTabStyle.Render("Weekly")
	if r.mode == reportDaily {
		dailyTab = activeTabStyle.Render("Daily")
	} else {
		weeklyTab = activeTabStyle.Render("Weekly")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, dailyTab, weeklyTab)

	starts, end := r.buckets()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", starts[0].Format("Jan 02"), end.AddDate(0, 0, -1).Format("Jan 02, 2006")))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Doses"), "  ", modeTabs, "  ", dateLabel,
	)

	nav := mutedStyle.Render("  ←/→: navigate  enter: daily/weekly")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderTotals(w), "", nav,
		),
	)
}

func (r reportsModel) renderTotals(w int) string {
	totals := r.totals()
	if len(totals) == 0 {
		return mutedStyle.Render("  No doses in this period")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-22s %6s  %s", "Medication", "Doses", "Last")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 44))))
	for _, t := range totals {
		dot := lipgloss.NewStyle().Foreground(r.colorFor(t.name)).Render("●")
		rows = append(rows, fmt.Sprintf("  %s %-20s %6d  %s",
			dot, t.name, t.doses, t.last.In(r.loc).Format("01-02 15:04"),
		))
	}
	return strings.Join(rows, "\n")
}
