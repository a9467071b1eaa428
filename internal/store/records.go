package store

import (
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Load returns the payloads of the keys that exist.
func (s *Store) Load(keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		var payload []byte
		err := s.db.QueryRow(`SELECT payload FROM records WHERE key = ?`, key).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load record %q: %w", key, err)
		}
		out[key] = payload
	}
	return out, nil
}

// Save upserts every record in a single transaction.
func (s *Store) Save(records map[string][]byte) (retErr error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, key := range slices.Sorted(maps.Keys(records)) {
		_, err := tx.Exec(
			`INSERT INTO records (key, payload, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
			key, records[key], now,
		)
		if err != nil {
			return fmt.Errorf("upsert record %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit records: %w", err)
	}
	return nil
}
