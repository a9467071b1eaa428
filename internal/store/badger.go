package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
)

const (
	recordPrefix  = "record:"
	settingPrefix = "setting:"
)

// Badger is the embedded key-value backend. It stores the same records and
// settings as Store under prefixed keys.
type Badger struct {
	db       *badger.DB
	cancelGC func()
	wg       sync.WaitGroup
}

// NewBadger opens (or creates) a badger database in dir and starts the
// hourly value-log GC.
func NewBadger(dir string) (*Badger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger db at %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Badger{
		db:       db,
		cancelGC: cancel,
	}

	if err := b.seedSettings(); err != nil {
		cancel()
		db.Close()
		return nil, err
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				for b.db.RunValueLogGC(0.5) == nil && ctx.Err() == nil {
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return b, nil
}

// Close stops the GC loop and closes the database.
func (b *Badger) Close() error {
	b.cancelGC()
	b.wg.Wait()
	return b.db.Close()
}

func (b *Badger) seedSettings() error {
	return b.db.Update(func(tx *badger.Txn) error {
		for _, s := range defaultSettings {
			key := []byte(settingPrefix + s.Key)
			_, err := tx.Get(key)
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("read setting %q: %w", s.Key, err)
			}
			if err := tx.Set(key, []byte(s.Value)); err != nil {
				return fmt.Errorf("seed setting %q: %w", s.Key, err)
			}
		}
		return nil
	})
}

// Load returns the payloads of the keys that exist.
func (b *Badger) Load(keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	err := b.db.View(func(tx *badger.Txn) error {
		for _, key := range keys {
			item, err := tx.Get([]byte(recordPrefix + key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("load record %q: %w", key, err)
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read record %q: %w", key, err)
			}
			out[key] = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes every record in a single transaction.
func (b *Badger) Save(records map[string][]byte) error {
	return b.db.Update(func(tx *badger.Txn) error {
		for key, payload := range records {
			if err := tx.Set([]byte(recordPrefix+key), payload); err != nil {
				return fmt.Errorf("set record %q: %w", key, err)
			}
		}
		return nil
	})
}

func (b *Badger) GetSetting(key string) (value string, err error) {
	err = b.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(settingPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get setting %q: %w", key, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get setting %q: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	return
}

func (b *Badger) SetSetting(key, value string) error {
	return b.db.Update(func(tx *badger.Txn) error {
		return tx.Set([]byte(settingPrefix+key), []byte(value))
	})
}

// GetAllSettings lists settings ordered by key.
func (b *Badger) GetAllSettings() (settings []Setting, err error) {
	err = b.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(settingPrefix)

		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key()[len(settingPrefix):])
			err := item.Value(func(val []byte) error {
				settings = append(settings, Setting{Key: key, Value: string(val)})
				return nil
			})
			if err != nil {
				return fmt.Errorf("read setting %q: %w", key, err)
			}
		}
		return nil
	})
	return
}
