package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryAt(id, medID string, at time.Time) *HistoryEntry {
	return &HistoryEntry{ID: id, MedicationID: medID, Timestamp: at}
}

func TestEvaluateNoHistoryIsSafe(t *testing.T) {
	st := Evaluate(nil, nil, 4, baseTime)
	assert.Equal(t, StateSafe, st.State)
	assert.Nil(t, st.LastDose)
	assert.Zero(t, st.Elapsed)
	assert.Zero(t, st.Remaining)
	assert.True(t, st.AvailableAt.IsZero())
}

func TestEvaluateWaitWithinInterval(t *testing.T) {
	last := entryAt("h1", "a", baseTime)
	st := Evaluate(last, last, 4, baseTime.Add(3*time.Hour))

	require.Equal(t, StateWait, st.State)
	assert.Equal(t, time.Hour, st.Remaining)
	assert.Equal(t, 3*time.Hour, st.Elapsed)
	assert.Equal(t, baseTime.Add(4*time.Hour), st.AvailableAt)
}

func TestEvaluateSafeAfterInterval(t *testing.T) {
	last := entryAt("h1", "a", baseTime)
	st := Evaluate(last, last, 4, baseTime.Add(4*time.Hour+time.Minute))
	assert.Equal(t, StateSafe, st.State)
	assert.Equal(t, 4*time.Hour+time.Minute, st.Elapsed)
}

func TestEvaluateExactlyAtIntervalIsSafe(t *testing.T) {
	last := entryAt("h1", "a", baseTime)
	st := Evaluate(last, last, 4, baseTime.Add(4*time.Hour))
	assert.Equal(t, StateSafe, st.State)
}

func TestEvaluateRemainingStrictlyDecreases(t *testing.T) {
	last := entryAt("h1", "a", baseTime)
	prev := time.Duration(1<<62 - 1)
	for m := 0; m < 6*60; m += 7 {
		st := Evaluate(last, last, 6, baseTime.Add(time.Duration(m)*time.Minute))
		require.Equal(t, StateWait, st.State, "minute %d", m)
		assert.Less(t, st.Remaining, prev, "minute %d", m)
		assert.Equal(t, 6*time.Hour-time.Duration(m)*time.Minute, st.Remaining)
		prev = st.Remaining
	}
}

func TestEvaluateFractionalInterval(t *testing.T) {
	last := entryAt("h1", "a", baseTime)
	st := Evaluate(last, last, 0.5, baseTime.Add(20*time.Minute))
	require.Equal(t, StateWait, st.State)
	assert.Equal(t, 10*time.Minute, st.Remaining)
}

func TestEvaluateOverlapWithoutOwnDose(t *testing.T) {
	other := entryAt("h1", "a", baseTime)
	st := Evaluate(nil, other, 6, baseTime.Add(time.Hour))

	require.Equal(t, StateOverlap, st.State)
	assert.Same(t, other, st.OverlapDose)
	assert.Equal(t, 5*time.Hour, st.OverlapRemaining)
}

func TestEvaluateOverlapAfterOwnInterval(t *testing.T) {
	own := entryAt("h1", "b", baseTime)
	other := entryAt("h2", "a", baseTime.Add(5*time.Hour))
	st := Evaluate(own, other, 4, baseTime.Add(6*time.Hour))
	assert.Equal(t, StateOverlap, st.State)
}

func TestEvaluateSameEntryIsNotOverlap(t *testing.T) {
	own := entryAt("h1", "a", baseTime)
	st := Evaluate(own, own, 4, baseTime.Add(5*time.Hour))
	assert.Equal(t, StateSafe, st.State)
}

func TestEvaluateCategoryDoseOutsideWindow(t *testing.T) {
	other := entryAt("h1", "a", baseTime)
	st := Evaluate(nil, other, 6, baseTime.Add(6*time.Hour))
	assert.Equal(t, StateSafe, st.State)
}

func TestEvaluateWaitBeatsOverlap(t *testing.T) {
	own := entryAt("h1", "b", baseTime)
	other := entryAt("h2", "a", baseTime.Add(time.Hour))
	st := Evaluate(own, other, 4, baseTime.Add(2*time.Hour))

	assert.Equal(t, StateWait, st.State)
	assert.Nil(t, st.OverlapDose)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "SAFE", StateSafe.String())
	assert.Equal(t, "WAIT", StateWait.String())
	assert.Equal(t, "OVERLAP", StateOverlap.String())
}

// ============================================================
// Record-dose guard
// ============================================================

func TestCheckDose(t *testing.T) {
	own := entryAt("h1", "a", baseTime)
	other := entryAt("h2", "b", baseTime.Add(2*time.Hour))

	cases := []struct {
		name  string
		own   *HistoryEntry
		other *HistoryEntry
		at    time.Time
		want  Risk
	}{
		{"no history", nil, nil, baseTime, RiskNone},
		{"own within interval", own, nil, baseTime.Add(time.Hour), RiskWithinInterval},
		{"own after interval", own, nil, baseTime.Add(4 * time.Hour), RiskNone},
		{"own at same instant", own, nil, baseTime, RiskNone},
		{"backdated before own dose", own, nil, baseTime.Add(-time.Hour), RiskNone},
		{"own wins over category", own, other, baseTime.Add(3 * time.Hour), RiskWithinInterval},
		{"category within interval", own, other, baseTime.Add(5 * time.Hour), RiskCategoryOverlap},
		{"category only", nil, other, baseTime.Add(3 * time.Hour), RiskCategoryOverlap},
		{"category expired", nil, other, baseTime.Add(7 * time.Hour), RiskNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CheckDose(tc.own, tc.other, 4, tc.at)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want != RiskNone, got.NeedsConfirmation())
		})
	}
}

func TestRiskMessage(t *testing.T) {
	m := Medication{Name: "ロキソニンS", IntervalHours: 4, Category: "解熱鎮痛剤"}
	assert.Contains(t, RiskWithinInterval.Message(m), "4h interval for ロキソニンS")
	assert.Contains(t, RiskCategoryOverlap.Message(m), "Another 解熱鎮痛剤 medication")
	assert.Empty(t, RiskNone.Message(m))
	assert.Equal(t, "0.5h", Medication{IntervalHours: 0.5}.IntervalLabel())
}
