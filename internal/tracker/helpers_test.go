package tracker

import (
	"errors"
	"fmt"
	"maps"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store that counts saves.
type memStore struct {
	records map[string][]byte
	saves   int
	failErr error
}

func newMemStore() *memStore {
	return &memStore{records: map[string][]byte{}}
}

func (m *memStore) Load(keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, k := range keys {
		if v, ok := m.records[k]; ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (m *memStore) Save(records map[string][]byte) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.saves++
	maps.Copy(m.records, records)
	return nil
}

var errDiskFull = errors.New("disk full")

// fakeClock is a settable Clock.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func (c *fakeClock) Set(t time.Time)         { c.t = t }

var baseTime = time.Date(2025, time.June, 15, 9, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

type fixture struct {
	engine *Engine
	store  *memStore
	clock  *fakeClock
}

// newFixture opens an engine with no presets, retention disabled, UTC
// calendar and deterministic ids unless opts override them.
func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	st := newMemStore()
	clk := &fakeClock{t: baseTime}
	base := []Option{
		WithClock(clk),
		WithLocation(time.UTC),
		WithPresets(nil),
		WithDefaultRetention(0),
		WithIDGenerator(sequentialIDs()),
	}
	e, err := Open(st, append(base, opts...)...)
	require.NoError(t, err)
	return fixture{engine: e, store: st, clock: clk}
}

func (f fixture) addMed(t *testing.T, name string, hours float64, category string) Medication {
	t.Helper()
	m, err := f.engine.AddMedication(name, hours, category)
	require.NoError(t, err)
	return m
}

func (f fixture) doseAt(t *testing.T, medID string, at time.Time) HistoryEntry {
	t.Helper()
	h, err := f.engine.AddDoseAt(medID, at)
	require.NoError(t, err)
	return h
}
