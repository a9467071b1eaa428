// Package tracker holds the dose-tracking domain: the medication registry, the
// dose ledger, the SAFE/WAIT/OVERLAP status rules, retention cleanup and
// export/import. Presentation code talks to an Engine and never to the store.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/medlog/internal/logging"
)

// Record names in the store.
const (
	KeyMedications = "medications"
	KeyHistory     = "medication-history"
	KeyRetention   = "history-retention-months"
)

// Store is a durable key-value store of named records. Load returns only the
// keys that exist. Save replaces every given record in one write.
type Store interface {
	Load(keys ...string) (map[string][]byte, error)
	Save(records map[string][]byte) error
}

type state struct {
	medications     []Medication
	history         []HistoryEntry
	retentionMonths int
}

func (s state) clone() state {
	return state{
		medications:     slices.Clone(s.medications),
		history:         slices.Clone(s.history),
		retentionMonths: s.retentionMonths,
	}
}

// Engine owns the medication and history collections. All methods are safe
// for concurrent use; each operation is applied atomically and persisted
// before it becomes visible.
type Engine struct {
	mu    sync.Mutex
	store Store
	clock Clock
	loc   *time.Location
	log   logging.Logger
	newID func() string

	presets          []Preset
	defaultRetention int

	st state
}

type Option func(*Engine)

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLocation sets the calendar used for month arithmetic.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithPresets replaces DefaultPresets.
func WithPresets(p []Preset) Option {
	return func(e *Engine) { e.presets = p }
}

// WithIDGenerator overrides UUIDv7 id generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithDefaultRetention sets the retention used when the store has none.
func WithDefaultRetention(months int) Option {
	return func(e *Engine) { e.defaultRetention = months }
}

// Open loads the collections from s and runs startup maintenance: preset
// seeding, name back-fill and retention cleanup. Anything that changed is
// written back before Open returns.
func Open(s Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:            s,
		clock:            SystemClock,
		loc:              time.Local,
		log:              logging.Discard(),
		newID:            newUUID,
		presets:          DefaultPresets,
		defaultRetention: DefaultRetentionMonths,
	}
	for _, o := range opts {
		o(e)
	}
	if e.defaultRetention < 0 {
		return nil, invalid("retention", "must not be negative")
	}

	st, complete, err := e.load()
	if err != nil {
		return nil, err
	}

	changed := !complete
	if seedPresets(&st, e.presets) {
		changed = true
	}
	if n := backfillNames(&st); n > 0 {
		e.log.Info(context.Background(), "backfilled medication names", "entries", n)
		changed = true
	}
	if e.applyRetention(&st) > 0 {
		changed = true
	}

	if changed {
		if err := e.persist(st); err != nil {
			return nil, err
		}
	}
	e.st = st
	return e, nil
}

func (e *Engine) load() (state, bool, error) {
	records, err := e.store.Load(KeyMedications, KeyHistory, KeyRetention)
	if err != nil {
		return state{}, false, fmt.Errorf("load records: %w", err)
	}

	st := state{retentionMonths: e.defaultRetention}
	complete := true

	if data, ok := records[KeyMedications]; ok {
		if err := json.Unmarshal(data, &st.medications); err != nil {
			return state{}, false, fmt.Errorf("decode %s: %w", KeyMedications, err)
		}
	} else {
		complete = false
	}
	if data, ok := records[KeyHistory]; ok {
		if err := json.Unmarshal(data, &st.history); err != nil {
			return state{}, false, fmt.Errorf("decode %s: %w", KeyHistory, err)
		}
		for i := range st.history {
			st.history[i].Timestamp = st.history[i].Timestamp.UTC()
		}
	} else {
		complete = false
	}
	if data, ok := records[KeyRetention]; ok {
		if err := json.Unmarshal(data, &st.retentionMonths); err != nil {
			return state{}, false, fmt.Errorf("decode %s: %w", KeyRetention, err)
		}
	} else {
		complete = false
	}
	return st, complete, nil
}

func (e *Engine) persist(st state) error {
	meds := st.medications
	if meds == nil {
		meds = []Medication{}
	}
	hist := st.history
	if hist == nil {
		hist = []HistoryEntry{}
	}

	records := make(map[string][]byte, 3)
	var err error
	if records[KeyMedications], err = json.Marshal(meds); err != nil {
		return fmt.Errorf("encode %s: %w", KeyMedications, err)
	}
	if records[KeyHistory], err = json.Marshal(hist); err != nil {
		return fmt.Errorf("encode %s: %w", KeyHistory, err)
	}
	if records[KeyRetention], err = json.Marshal(st.retentionMonths); err != nil {
		return fmt.Errorf("encode %s: %w", KeyRetention, err)
	}
	if err := e.store.Save(records); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	return nil
}

// mutate runs fn against a working copy of the state. When fn reports a
// change, retention is re-applied and the copy is persisted, then committed.
// On any error the committed state is left untouched.
func (e *Engine) mutate(fn func(st *state) (bool, error)) error {
	next := e.st.clone()
	changed, err := fn(&next)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	e.applyRetention(&next)
	if err := e.persist(next); err != nil {
		return err
	}
	e.st = next
	return nil
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

func (e *Engine) now() time.Time {
	return e.clock.Now()
}

// uniqueID draws ids until one is unused by both collections.
func (e *Engine) uniqueID(st *state) string {
	for {
		id := e.newID()
		if indexOfMedication(st.medications, id) < 0 && indexOfEntry(st.history, id) < 0 {
			return id
		}
	}
}

func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func indexOfMedication(meds []Medication, id string) int {
	return slices.IndexFunc(meds, func(m Medication) bool { return m.ID == id })
}

func indexOfEntry(hist []HistoryEntry, id string) int {
	return slices.IndexFunc(hist, func(h HistoryEntry) bool { return h.ID == id })
}

// sortRecentFirst orders entries by timestamp descending, keeping storage
// order for ties.
func sortRecentFirst(hist []HistoryEntry) {
	slices.SortStableFunc(hist, func(a, b HistoryEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}
