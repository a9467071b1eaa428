package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/medlog/internal/store"
	"github.com/sadopc/medlog/internal/tracker"
)

var baseTime = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC) // a Sunday

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestEngine(t *testing.T, s *store.Store, presets []tracker.Preset) *tracker.Engine {
	t.Helper()
	e, err := tracker.Open(s,
		tracker.WithClock(tracker.ClockFunc(func() time.Time { return baseTime })),
		tracker.WithLocation(time.UTC),
		tracker.WithPresets(presets),
		tracker.WithDefaultRetention(0),
	)
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	return e
}

func addMed(t *testing.T, e *tracker.Engine, name string, hours float64, cat string) tracker.Medication {
	t.Helper()
	m, err := e.AddMedication(name, hours, cat)
	if err != nil {
		t.Fatalf("add medication: %v", err)
	}
	return m
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// runCmd executes a single (non-batch) command.
func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return cmd()
}

func loadedMedications(t *testing.T, e *tracker.Engine) medicationsModel {
	t.Helper()
	m := newMedicationsModel(e, time.UTC)
	m.setSize(120, 40)
	m.setCards(runCmd(t, m.refresh()).(medicationsDataMsg).cards)
	return m
}

// ============================================================
// Helpers
// ============================================================

func TestFormatSpan(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "<1m"},
		{12 * time.Minute, "12m"},
		{2*time.Hour + 5*time.Minute + 59*time.Second, "2h05m"},
	}
	for _, tt := range tests {
		if got := formatSpan(tt.d); got != tt.want {
			t.Errorf("formatSpan(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatRemainingRoundsUp(t *testing.T) {
	if got := formatRemaining(30 * time.Second); got != "1m" {
		t.Fatalf("formatRemaining(30s) = %q, want 1m", got)
	}
	if got := formatRemaining(time.Hour + time.Second); got != "1h01m" {
		t.Fatalf("formatRemaining(1h1s) = %q, want 1h01m", got)
	}
	if got := formatRemaining(2 * time.Hour); got != "2h00m" {
		t.Fatalf("formatRemaining(2h) = %q, want 2h00m", got)
	}
}

func TestParseClock(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	now := time.Date(2025, 6, 15, 1, 0, 0, 0, time.UTC) // 10:00 JST

	tests := []struct {
		in   string
		want time.Time
	}{
		{"08:30", time.Date(2025, 6, 15, 8, 30, 0, 0, jst)},
		{"2025-06-14 22:15", time.Date(2025, 6, 14, 22, 15, 0, 0, jst)},
		{"2025/06/14 22:15", time.Date(2025, 6, 14, 22, 15, 0, 0, jst)},
		{"2025-06-14T10:00:00Z", time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseClock(tt.in, now, jst)
		if err != nil {
			t.Fatalf("parseClock(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("parseClock(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "yesterday", "25:00", "2025-13-01 10:00"} {
		if _, err := parseClock(bad, now, jst); err == nil {
			t.Fatalf("parseClock(%q) should fail", bad)
		}
	}
}

func TestStatusLine(t *testing.T) {
	last := &tracker.HistoryEntry{ID: "a", MedicationName: "A", Timestamp: baseTime.Add(-time.Hour)}
	other := &tracker.HistoryEntry{ID: "b", MedicationName: "B", Timestamp: baseTime.Add(-time.Hour)}

	if got := statusLine(tracker.Evaluate(nil, nil, 4, baseTime), time.UTC); got != "never taken" {
		t.Fatalf("safe without doses = %q", got)
	}

	wait := statusLine(tracker.Evaluate(last, last, 4, baseTime), time.UTC)
	if wait != "3h00m left (from 12:00)" {
		t.Fatalf("wait = %q", wait)
	}

	overlap := statusLine(tracker.Evaluate(nil, other, 4, baseTime), time.UTC)
	if overlap != "B taken, 3h00m left" {
		t.Fatalf("overlap = %q", overlap)
	}

	safe := statusLine(tracker.Evaluate(last, last, 0.5, baseTime), time.UTC)
	if safe != "1h00m since last dose" {
		t.Fatalf("safe = %q", safe)
	}
}

// ============================================================
// View names
// ============================================================

func TestViewNames(t *testing.T) {
	expected := []string{"Medications", "History", "Reports", "Settings"}
	if len(viewNames) != len(expected) {
		t.Fatalf("expected %d view names, got %d", len(expected), len(viewNames))
	}
	for i, name := range expected {
		if viewNames[i] != name {
			t.Fatalf("viewNames[%d] = %q, want %q", i, viewNames[i], name)
		}
	}
}

func TestViewStateConstants(t *testing.T) {
	if viewMedications != 0 || viewHistory != 1 || viewReports != 2 || viewSettings != 3 {
		t.Fatal("view state constants out of order")
	}
}

// ============================================================
// Medications model
// ============================================================

func TestMedicationsLoad(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	a := addMed(t, e, "Alpha", 4, "x")
	addMed(t, e, "Beta", 8, "y")
	if _, err := e.AddDoseAt(a.ID, baseTime.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	m := loadedMedications(t, e)
	if len(m.cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(m.cards))
	}
	if m.cards[0].status.State != tracker.StateWait {
		t.Fatalf("Alpha should be WAIT, got %v", m.cards[0].status.State)
	}
	if m.cards[1].status.State != tracker.StateSafe {
		t.Fatalf("Beta should be SAFE, got %v", m.cards[1].status.State)
	}
	if out := m.view(); !strings.Contains(out, "Alpha") || !strings.Contains(out, "WAIT") {
		t.Fatal("view should list Alpha as WAIT")
	}
}

func TestMedicationsCursorClampedOnReload(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	addMed(t, e, "A", 4, "x")
	b := addMed(t, e, "B", 4, "x")

	m := loadedMedications(t, e)
	m, _ = m.update(tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}

	if err := e.RemoveMedication(b.ID); err != nil {
		t.Fatal(err)
	}
	m.setCards(m.load())
	if m.cursor != 0 {
		t.Fatalf("cursor should clamp to 0, got %d", m.cursor)
	}
}

func TestRecordSafeDoseCommitsImmediately(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	addMed(t, e, "Alpha", 4, "x")
	m := loadedMedications(t, e)

	m, cmd := m.update(keyPress("r"))
	if m.formActive {
		t.Fatal("safe dose should not ask for confirmation")
	}
	msg, ok := runCmd(t, cmd).(dataChangedMsg)
	if !ok {
		t.Fatal("expected dataChangedMsg")
	}
	if msg.text != "Recorded Alpha at 09:00" {
		t.Fatalf("status = %q", msg.text)
	}
	if len(e.History()) != 1 {
		t.Fatalf("expected 1 dose, got %d", len(e.History()))
	}
}

func TestRecordWithinIntervalAsksFirst(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	a := addMed(t, e, "Alpha", 4, "x")
	e.AddDoseAt(a.ID, baseTime.Add(-time.Hour))
	m := loadedMedications(t, e)

	m, _ = m.record(a, baseTime)
	if !m.formActive || m.formType != formConfirmDose {
		t.Fatal("risky dose should open the confirmation form")
	}
	if m.pending == nil || m.pending.medicationID != a.ID || !m.pending.at.Equal(baseTime) {
		t.Fatalf("unexpected pending dose %+v", m.pending)
	}
	if !strings.Contains(m.pending.prompt, "4h interval") {
		t.Fatalf("prompt = %q", m.pending.prompt)
	}
	if len(e.History()) != 1 {
		t.Fatal("nothing should be recorded before confirmation")
	}
	if !strings.Contains(m.view(), "Check Before Recording") {
		t.Fatal("view should show the confirmation")
	}

	m, cmd := m.resolvePending(true)
	if m.formActive || m.pending != nil {
		t.Fatal("confirmation should close")
	}
	if _, ok := runCmd(t, cmd).(dataChangedMsg); !ok {
		t.Fatal("expected dataChangedMsg after confirming")
	}
	if len(e.History()) != 2 {
		t.Fatalf("expected 2 doses, got %d", len(e.History()))
	}
}

func TestRecordDeclinedLeavesHistory(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	a := addMed(t, e, "Alpha", 4, "x")
	e.AddDoseAt(a.ID, baseTime.Add(-time.Hour))
	m := loadedMedications(t, e)

	m, _ = m.record(a, baseTime)
	m, cmd := m.resolvePending(false)
	msg, ok := runCmd(t, cmd).(statusMsg)
	if !ok || msg.text != "Dose not recorded" {
		t.Fatalf("unexpected message %#v", msg)
	}
	if len(e.History()) != 1 {
		t.Fatalf("declined dose was recorded")
	}
}

func TestRecordEscapeCancelsPending(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	a := addMed(t, e, "Alpha", 4, "x")
	e.AddDoseAt(a.ID, baseTime.Add(-time.Hour))
	m := loadedMedications(t, e)

	m, _ = m.record(a, baseTime)
	m, _ = m.update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.formActive || m.pending != nil {
		t.Fatal("esc should close the confirmation")
	}
	if len(e.History()) != 1 {
		t.Fatal("esc should not record")
	}
}

func TestRecordCategoryOverlapAsksFirst(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	a := addMed(t, e, "Alpha", 4, "解熱鎮痛剤")
	b := addMed(t, e, "Beta", 4, "解熱鎮痛剤")
	e.AddDoseAt(a.ID, baseTime.Add(-2*time.Hour))
	m := loadedMedications(t, e)

	if m.cards[1].status.State != tracker.StateOverlap {
		t.Fatalf("Beta should be OVERLAP, got %v", m.cards[1].status.State)
	}

	m, _ = m.record(b, baseTime)
	if m.pending == nil || !strings.HasPrefix(m.pending.prompt, "Another 解熱鎮痛剤") {
		t.Fatalf("expected overlap prompt, got %+v", m.pending)
	}
}

func TestRecordAtForm(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	a := addMed(t, e, "Alpha", 4, "x")
	m := loadedMedications(t, e)

	m, _ = m.update(keyPress("t"))
	if !m.formActive || m.formType != formRecordAt || m.target != a.ID {
		t.Fatal("t should open the timed record form")
	}
	if *m.formTime != "09:00" {
		t.Fatalf("form should default to now, got %q", *m.formTime)
	}

	*m.formTime = "07:15"
	m, cmd := m.submitForm()
	if _, ok := runCmd(t, cmd).(dataChangedMsg); !ok {
		t.Fatal("expected dataChangedMsg")
	}
	hist := e.History()
	if len(hist) != 1 || !hist[0].Timestamp.Equal(time.Date(2025, 6, 15, 7, 15, 0, 0, time.UTC)) {
		t.Fatalf("unexpected history %+v", hist)
	}
}

func TestRecordAtRunsGuard(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	a := addMed(t, e, "Alpha", 4, "x")
	e.AddDoseAt(a.ID, time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC))
	m := loadedMedications(t, e)

	m, _ = m.showRecordAtForm(a)
	*m.formTime = "08:00"
	m, _ = m.submitForm()
	if m.formType != formConfirmDose || m.pending == nil {
		t.Fatal("backdated dose within the interval should ask first")
	}
}

func TestAddMedicationForm(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	m := loadedMedications(t, e)

	m, _ = m.update(keyPress("n"))
	if !m.formActive || m.formType != formAddMedication {
		t.Fatal("n should open the add form")
	}
	*m.formName = "  Gamma  "
	*m.formInterval = "6.5"
	*m.formCategory = "胃腸薬"

	m, cmd := m.submitForm()
	msg, ok := runCmd(t, cmd).(dataChangedMsg)
	if !ok || msg.text != "Added Gamma" {
		t.Fatalf("unexpected message %#v", msg)
	}
	meds := e.Medications()
	if len(meds) != 1 || meds[0].Name != "Gamma" || meds[0].IntervalHours != 6.5 || meds[0].Category != "胃腸薬" {
		t.Fatalf("unexpected medications %+v", meds)
	}
}

func TestAddMedicationRejectsBadInterval(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	m := loadedMedications(t, e)

	m, _ = m.showAddForm()
	*m.formName = "Gamma"
	*m.formInterval = "-1"
	_, cmd := m.submitForm()
	msg, ok := runCmd(t, cmd).(statusMsg)
	if !ok || !msg.isError {
		t.Fatalf("expected error status, got %#v", msg)
	}
	if len(e.Medications()) != 0 {
		t.Fatal("nothing should be added")
	}
}

func TestParseInterval(t *testing.T) {
	if h, err := parseInterval(" 0.5 "); err != nil || h != 0.5 {
		t.Fatalf("parseInterval(0.5) = %v, %v", h, err)
	}
	for _, bad := range []string{"", "0", "-2", "four"} {
		if _, err := parseInterval(bad); err == nil {
			t.Fatalf("parseInterval(%q) should fail", bad)
		}
	}
}

func TestDeletePresetRefused(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, []tracker.Preset{{Name: "P", IntervalHours: 4, Category: "c"}})
	m := loadedMedications(t, e)

	m, cmd := m.update(keyPress("d"))
	if m.formActive {
		t.Fatal("no confirmation for a preset")
	}
	msg, ok := runCmd(t, cmd).(statusMsg)
	if !ok || !msg.isError {
		t.Fatalf("expected error status, got %#v", msg)
	}
	if len(e.Medications()) != 1 {
		t.Fatal("preset should remain")
	}
}

func TestDeleteMedicationConfirmed(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	a := addMed(t, e, "Alpha", 4, "x")
	e.AddDoseAt(a.ID, baseTime.Add(-time.Hour))
	m := loadedMedications(t, e)

	m, _ = m.update(keyPress("d"))
	if m.formType != formDeleteMedication || m.target != a.ID {
		t.Fatal("d should open the delete confirmation")
	}

	*m.formConfirm = false
	m, cmd := m.submitForm()
	if cmd != nil || len(e.Medications()) != 1 {
		t.Fatal("declined delete should do nothing")
	}

	m, _ = m.showDeleteForm(a)
	*m.formConfirm = true
	_, cmd = m.submitForm()
	if _, ok := runCmd(t, cmd).(dataChangedMsg); !ok {
		t.Fatal("expected dataChangedMsg")
	}
	if len(e.Medications()) != 0 {
		t.Fatal("medication should be deleted")
	}
	if len(e.History()) != 1 {
		t.Fatal("history should survive deletion")
	}
}

func TestResetDoseCountKey(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	a := addMed(t, e, "Alpha", 4, "x")
	e.AddDoseAt(a.ID, baseTime.Add(-5*time.Hour))
	e.AddDoseAt(a.ID, baseTime.Add(-10*time.Hour))
	m := loadedMedications(t, e)

	_, cmd := m.update(keyPress("z"))
	runCmd(t, cmd)
	got, _ := e.Medication(a.ID)
	if got.DoseCount != 0 {
		t.Fatalf("dose count = %d, want 0", got.DoseCount)
	}
	if len(e.History()) != 2 {
		t.Fatal("reset should not touch history")
	}
}

// ============================================================
// History model
// ============================================================

func loadedHistory(t *testing.T, e *tracker.Engine) historyModel {
	t.Helper()
	h := newHistoryModel(e, time.UTC)
	h.setSize(120, 40)
	h.setEntries(runCmd(t, h.refresh()).(historyDataMsg))
	return h
}

func TestHistoryEditEntry(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	a := addMed(t, e, "Alpha", 4, "x")
	entry, _ := e.AddDoseAt(a.ID, baseTime.Add(-time.Hour))
	h := loadedHistory(t, e)

	h, _ = h.update(keyPress("e"))
	if !h.formActive || !h.editing || h.target != entry.ID {
		t.Fatal("e should open the edit form for the selected entry")
	}
	if *h.formTime != "2025-06-15 08:00" {
		t.Fatalf("form should hold the current time, got %q", *h.formTime)
	}

	*h.formTime = "2025-06-14 21:30"
	_, cmd := h.submitForm()
	if _, ok := runCmd(t, cmd).(dataChangedMsg); !ok {
		t.Fatal("expected dataChangedMsg")
	}
	got, _ := e.Entry(entry.ID)
	if !got.Timestamp.Equal(time.Date(2025, 6, 14, 21, 30, 0, 0, time.UTC)) {
		t.Fatalf("timestamp = %v", got.Timestamp)
	}
}

func TestHistoryEditMissingEntry(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	h := loadedHistory(t, e)

	_, cmd := h.editEntry("missing", "08:00")
	msg, ok := runCmd(t, cmd).(statusMsg)
	if !ok || !msg.isError {
		t.Fatalf("expected error status, got %#v", msg)
	}
}

func TestHistoryDeleteEntry(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	a := addMed(t, e, "Alpha", 4, "x")
	e.AddDoseAt(a.ID, baseTime.Add(-2*time.Hour))
	keep, _ := e.AddDoseAt(a.ID, baseTime.Add(-time.Hour))
	h := loadedHistory(t, e)

	h, _ = h.update(tea.KeyMsg{Type: tea.KeyDown})
	h, _ = h.update(keyPress("d"))
	if h.editing || !h.formActive {
		t.Fatal("d should open the delete confirmation")
	}
	*h.formConfirm = true
	_, cmd := h.submitForm()
	runCmd(t, cmd)

	hist := e.History()
	if len(hist) != 1 || hist[0].ID != keep.ID {
		t.Fatalf("wrong entry deleted: %+v", hist)
	}
}

func TestHistoryViewShowsDeletedName(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	a := addMed(t, e, "Alpha", 4, "x")
	e.AddDoseAt(a.ID, baseTime.Add(-time.Hour))
	if err := e.RemoveMedication(a.ID); err != nil {
		t.Fatal(err)
	}
	res := e.ImportData([]byte(`{"medications": [], "history": [
		{"id": "orphan", "medicationId": "gone", "timestamp": "2025-06-15T07:00:00Z"}]}`), tracker.ImportMerge)
	if !res.Success {
		t.Fatal(res.Err)
	}

	out := loadedHistory(t, e).view()
	if !strings.Contains(out, "Alpha") {
		t.Fatal("snapshot name should be shown")
	}
	if !strings.Contains(out, tracker.DeletedMedicationName) {
		t.Fatal("orphan without a name should show the deleted label")
	}
}

// ============================================================
// Reports model
// ============================================================

func TestReportsDailyBuckets(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	r := newReportsModel(e, time.UTC)
	r.setData(runCmd(t, r.refresh()).(reportsDataMsg))

	starts, end := r.buckets()
	if len(starts) != 7 {
		t.Fatalf("expected 7 days, got %d", len(starts))
	}
	if !starts[0].Equal(time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first day = %v", starts[0])
	}
	if !end.Equal(time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v", end)
	}

	r, _ = r.update(keyPress("h"))
	starts, _ = r.buckets()
	if !starts[0].Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("previous week should start 06-02, got %v", starts[0])
	}
}

func TestReportsWeeklyBuckets(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	r := newReportsModel(e, time.UTC)
	r.setData(runCmd(t, r.refresh()).(reportsDataMsg))
	r, _ = r.update(tea.KeyMsg{Type: tea.KeyEnter})

	starts, end := r.buckets()
	if len(starts) != 8 {
		t.Fatalf("expected 8 weeks, got %d", len(starts))
	}
	for _, st := range starts {
		if st.Weekday() != time.Monday {
			t.Fatalf("week should start on Monday, got %v", st)
		}
	}
	if !starts[7].Equal(time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("current week = %v", starts[7])
	}
	if !end.Equal(time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v", end)
	}
}

func TestReportsCounts(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	a := addMed(t, e, "Alpha", 4, "x")
	b := addMed(t, e, "Beta", 4, "y")
	for _, d := range []struct {
		id string
		at time.Time
	}{
		{a.ID, time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)},
		{a.ID, time.Date(2025, 6, 15, 1, 0, 0, 0, time.UTC)},
		{b.ID, time.Date(2025, 6, 14, 23, 59, 0, 0, time.UTC)},
		{a.ID, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)},
		{a.ID, time.Date(2025, 6, 8, 23, 0, 0, 0, time.UTC)}, // outside
	} {
		if _, err := e.AddDoseAt(d.id, d.at); err != nil {
			t.Fatal(err)
		}
	}

	r := newReportsModel(e, time.UTC)
	r.setSize(120, 40)
	r.setData(runCmd(t, r.refresh()).(reportsDataMsg))

	starts, end := r.buckets()
	counts := r.counts(starts, end)
	if counts[6]["Alpha"] != 2 {
		t.Fatalf("today Alpha = %d, want 2", counts[6]["Alpha"])
	}
	if counts[5]["Beta"] != 1 {
		t.Fatalf("yesterday Beta = %d, want 1", counts[5]["Beta"])
	}
	if counts[0]["Alpha"] != 1 {
		t.Fatalf("first day Alpha = %d, want 1", counts[0]["Alpha"])
	}

	totals := r.totals()
	if len(totals) != 2 || totals[0].name != "Alpha" || totals[0].doses != 3 {
		t.Fatalf("unexpected totals %+v", totals)
	}
	if !strings.Contains(r.view(), "Alpha") {
		t.Fatal("view should list Alpha")
	}
}

// ============================================================
// Settings model
// ============================================================

func loadedSettings(t *testing.T, e *tracker.Engine, b store.Backend) settingsModel {
	t.Helper()
	st := newSettingsModel(e, b, time.UTC)
	st.setSize(120, 40)
	st.setData(runCmd(t, st.refresh()).(settingsDataMsg))
	return st
}

func TestSettingsSavePreferences(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	st := loadedSettings(t, e, s)

	st, _ = st.update(tea.KeyMsg{Type: tea.KeyEnter})
	if !st.formActive || st.clearing {
		t.Fatal("enter should open the preferences form")
	}
	if *st.formRetention != 0 {
		t.Fatalf("form retention = %d, want 0", *st.formRetention)
	}

	_, cmd := st.savePreferences(12, "/tmp/meds")
	if _, ok := runCmd(t, cmd).(dataChangedMsg); !ok {
		t.Fatal("expected dataChangedMsg")
	}
	if e.RetentionMonths() != 12 {
		t.Fatalf("retention = %d, want 12", e.RetentionMonths())
	}
	dir, err := s.GetSetting(store.SettingExportDir)
	if err != nil || dir != "/tmp/meds" {
		t.Fatalf("export dir = %q, %v", dir, err)
	}
}

func TestSettingsClearHistory(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	a := addMed(t, e, "Alpha", 4, "x")
	e.AddDoseAt(a.ID, baseTime.AddDate(0, -7, 0))
	e.AddDoseAt(a.ID, baseTime.AddDate(0, -2, 0))
	st := loadedSettings(t, e, s)

	st, _ = st.update(keyPress("c"))
	if !st.formActive || !st.clearing {
		t.Fatal("c should open the clear form")
	}
	if *st.formClear != 3 {
		t.Fatalf("clear months should default to the saved value, got %d", *st.formClear)
	}

	_, cmd := st.clearHistory(6)
	msg, ok := runCmd(t, cmd).(dataChangedMsg)
	if !ok || msg.text != "Deleted 1 doses older than 6 months" {
		t.Fatalf("unexpected message %#v", msg)
	}
	if len(e.History()) != 1 {
		t.Fatalf("expected 1 dose left, got %d", len(e.History()))
	}
	v, _ := s.GetSetting(store.SettingClearMonths)
	if v != "6" {
		t.Fatalf("clear_months = %q, want 6", v)
	}
	if e.RetentionMonths() != 0 {
		t.Fatal("clearing should not change retention")
	}
}

func TestMonthOptionsKeepsCurrent(t *testing.T) {
	if got := len(monthOptions(retentionChoices, 3)); got != len(retentionChoices) {
		t.Fatalf("expected %d options, got %d", len(retentionChoices), got)
	}
	if got := len(monthOptions(retentionChoices, 9)); got != len(retentionChoices)+1 {
		t.Fatalf("current value should be appended, got %d options", got)
	}
}

func TestMonthsLabel(t *testing.T) {
	if monthsLabel(0) != "Off" || monthsLabel(6) != "6 months" {
		t.Fatal("unexpected month labels")
	}
}

func TestScheduleLabel(t *testing.T) {
	st := newSettingsModel(nil, nil, time.UTC)
	if st.scheduleLabel() != "Off" {
		t.Fatalf("empty schedule = %q", st.scheduleLabel())
	}
	st.scheduleSpec = "0 0 * * *"
	st.scheduleNext = func() time.Time { return time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC) }
	if got := st.scheduleLabel(); got != "0 0 * * * (next 06-16 00:00)" {
		t.Fatalf("schedule = %q", got)
	}
}

// ============================================================
// App model
// ============================================================

func newTestApp(t *testing.T) (App, *tracker.Engine, *store.Store) {
	t.Helper()
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	app := NewApp(e, s, WithLocation(time.UTC), WithRefreshInterval(time.Second))
	return app, e, s
}

func TestNewApp(t *testing.T) {
	app, _, _ := newTestApp(t)

	if app.activeView != viewMedications {
		t.Fatal("default view should be medications")
	}
	if app.showHelp {
		t.Fatal("help should be hidden by default")
	}
	if app.exportPicking {
		t.Fatal("export picker should be hidden by default")
	}
	if app.opts.refresh != time.Second {
		t.Fatalf("refresh = %v", app.opts.refresh)
	}
}

func TestNewAppIgnoresZeroRefresh(t *testing.T) {
	s := newTestStore(t)
	e := newTestEngine(t, s, nil)
	app := NewApp(e, s, WithRefreshInterval(0))
	if app.opts.refresh != defaultRefreshInterval {
		t.Fatalf("refresh = %v", app.opts.refresh)
	}
}

func TestAppIsFormActiveDefault(t *testing.T) {
	app, _, _ := newTestApp(t)
	if app.isFormActive() {
		t.Fatal("no forms should be active initially")
	}
}

func TestAppViewStates(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.width = 120
	app.height = 40

	for _, v := range []viewState{viewMedications, viewHistory, viewReports, viewSettings} {
		app.activeView = v
		if app.View() == "" {
			t.Fatalf("view %d rendered empty", v)
		}
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.width = 120
	app.height = 40

	header := app.renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
}

func TestAppLoadingState(t *testing.T) {
	app, _, _ := newTestApp(t)
	if out := app.View(); out != "Loading..." {
		t.Fatalf("expected 'Loading...', got %q", out)
	}
}

func TestAppStatusMessage(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.width = 120
	app.height = 40

	model, _ := app.Update(statusMsg{text: "test status"})
	app = model.(App)
	if !strings.Contains(app.renderFooter(), "test status") {
		t.Fatal("footer should contain status message")
	}
}

func TestAppDataChangedRefreshes(t *testing.T) {
	app, e, _ := newTestApp(t)
	addMed(t, e, "Alpha", 4, "x")

	model, cmd := app.Update(dataChangedMsg{text: "Added Alpha"})
	app = model.(App)
	if app.status != "Added Alpha" || app.statusErr {
		t.Fatalf("status = %q", app.status)
	}
	if cmd == nil {
		t.Fatal("data change should trigger a refresh")
	}

	model, _ = app.Update(runCmd(t, app.medications.refresh()))
	app = model.(App)
	if len(app.medications.cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(app.medications.cards))
	}
}

func TestAppRoutesDataToInactiveViews(t *testing.T) {
	app, e, _ := newTestApp(t)
	a := addMed(t, e, "Alpha", 4, "x")
	e.AddDoseAt(a.ID, baseTime)

	model, _ := app.Update(runCmd(t, app.history.refresh()))
	app = model.(App)
	if len(app.history.entries) != 1 {
		t.Fatal("history should load while another view is active")
	}
}

func TestAppTickAndRefreshReturnCommands(t *testing.T) {
	app, _, _ := newTestApp(t)

	if _, cmd := app.Update(tickMsg(baseTime)); cmd == nil {
		t.Fatal("tick should reschedule and refresh")
	}
	if _, cmd := app.Update(RefreshMsg{}); cmd == nil {
		t.Fatal("refresh message should reload views")
	}
}

func TestAppTabSwitching(t *testing.T) {
	app, _, _ := newTestApp(t)

	model, _ := app.Update(keyPress("3"))
	app = model.(App)
	if app.activeView != viewReports {
		t.Fatalf("active view = %d, want reports", app.activeView)
	}

	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyTab})
	app = model.(App)
	if app.activeView != viewSettings {
		t.Fatalf("active view = %d, want settings", app.activeView)
	}

	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyTab})
	app = model.(App)
	if app.activeView != viewMedications {
		t.Fatal("tab should wrap around")
	}
}

func TestAppFormCapturesKeys(t *testing.T) {
	app, e, _ := newTestApp(t)
	a := addMed(t, e, "Alpha", 4, "x")
	e.AddDoseAt(a.ID, baseTime.Add(-time.Hour))
	app.medications.setCards(app.medications.load())

	model, _ := app.Update(keyPress("r"))
	app = model.(App)
	if !app.isFormActive() {
		t.Fatal("risky record should open a form")
	}

	model, _ = app.Update(keyPress("2"))
	app = model.(App)
	if app.activeView != viewMedications {
		t.Fatal("tab keys should go to the open form")
	}
}

func TestAppExportJSON(t *testing.T) {
	app, e, s := newTestApp(t)
	a := addMed(t, e, "Alpha", 4, "x")
	e.AddDoseAt(a.ID, baseTime)

	dir := t.TempDir()
	if err := s.SetSetting(store.SettingExportDir, dir); err != nil {
		t.Fatal(err)
	}

	msg, ok := runCmd(t, app.doExport(1)).(exportDoneMsg)
	if !ok {
		t.Fatal("expected exportDoneMsg")
	}
	want := filepath.Join(dir, "medlog-20250615-090000.json")
	if msg.path != want {
		t.Fatalf("path = %q, want %q", msg.path, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("export file missing: %v", err)
	}
}

func TestAppExportCSV(t *testing.T) {
	app, _, s := newTestApp(t)
	dir := t.TempDir()
	s.SetSetting(store.SettingExportDir, dir)

	msg, ok := runCmd(t, app.doExport(0)).(exportDoneMsg)
	if !ok {
		t.Fatal("expected exportDoneMsg")
	}
	if filepath.Ext(msg.path) != ".csv" {
		t.Fatalf("path = %q", msg.path)
	}
}

func TestAppExportPicker(t *testing.T) {
	app, _, _ := newTestApp(t)

	model, _ := app.Update(keyPress("x"))
	app = model.(App)
	if !app.exportPicking {
		t.Fatal("x should open the export picker")
	}
	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyDown})
	app = model.(App)
	if app.exportCursor != 1 {
		t.Fatalf("cursor = %d", app.exportCursor)
	}
	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	app = model.(App)
	if app.exportPicking {
		t.Fatal("esc should close the picker")
	}
}

// ============================================================
// Key bindings
// ============================================================

func TestKeyMapShortHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should have bindings")
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should have groups")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

// ============================================================
// Styles (smoke test, just verify they don't panic)
// ============================================================

func TestStylesRender(t *testing.T) {
	styles := []struct {
		name string
		fn   func() string
	}{
		{"activeTab", func() string { return activeTabStyle.Render("test") }},
		{"inactiveTab", func() string { return inactiveTabStyle.Render("test") }},
		{"panel", func() string { return panelStyle.Render("test") }},
		{"activePanel", func() string { return activePanelStyle.Render("test") }},
		{"safe", func() string { return safeStyle.Render("test") }},
		{"wait", func() string { return waitStyle.Render("test") }},
		{"overlap", func() string { return overlapStyle.Render("test") }},
		{"title", func() string { return titleStyle.Render("test") }},
		{"muted", func() string { return mutedStyle.Render("test") }},
		{"highlight", func() string { return highlightStyle.Render("test") }},
		{"header", func() string { return headerStyle.Render("test") }},
		{"footer", func() string { return footerStyle.Render("test") }},
		{"selectedItem", func() string { return selectedItemStyle.Render("test") }},
		{"normalItem", func() string { return normalItemStyle.Render("test") }},
	}

	for _, s := range styles {
		if s.fn() == "" {
			t.Fatalf("style %q rendered empty", s.name)
		}
	}

	for _, st := range []tracker.State{tracker.StateSafe, tracker.StateWait, tracker.StateOverlap} {
		if stateStyle(st).Render(st.String()) == "" {
			t.Fatalf("state %v rendered empty", st)
		}
	}
}
