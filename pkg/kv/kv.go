// Package kv implements the typed key-value store backing policy metadata
// and other small JSON-encoded records, per spec.md §3/§6.
package kv

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/ozanturksever/agentfs/pkg/store"
)

type Store struct {
	db *store.Store
}

func New(db *store.Store) *Store {
	return &Store{db: db}
}

type row struct {
	Value string `xorm:"'value'"`
}

// Get unmarshals the JSON value stored under key into a T and returns it,
// returning found=false (and T's zero value) if no such key exists.
func Get[T any](s *Store, key string) (value T, found bool, err error) {
	var r row
	ok, err := s.db.Get(&r, `SELECT value FROM kv_entry WHERE key = ?`, key)
	if err != nil {
		return value, false, errors.Wrapf(err, "kv get %q", key)
	}
	if !ok {
		return value, false, nil
	}
	if err := json.Unmarshal([]byte(r.Value), &value); err != nil {
		return value, false, errors.Wrapf(err, "kv decode %q", key)
	}
	return value, true, nil
}

// Set JSON-encodes value and upserts it under key.
func Set[T any](s *Store, key string, value T) error {
	buf, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "kv encode %q", key)
	}
	return s.set(key, string(buf))
}

func (s *Store) set(key, value string) error {
	var existing row
	ok, err := s.db.Get(&existing, `SELECT value FROM kv_entry WHERE key = ?`, key)
	if err != nil {
		return errors.Wrapf(err, "kv set %q", key)
	}
	if ok {
		_, err = s.db.Exec(`UPDATE kv_entry SET value = ? WHERE key = ?`, value, key)
		return errors.Wrapf(err, "kv set %q", key)
	}
	_, err = s.db.Exec(`INSERT INTO kv_entry(key, value) VALUES(?, ?)`, key, value)
	return errors.Wrapf(err, "kv set %q", key)
}

// Delete removes key; deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv_entry WHERE key = ?`, key)
	return errors.Wrapf(err, "kv delete %q", key)
}

// ListPrefix returns every key with the given prefix, unordered.
func (s *Store) ListPrefix(prefix string) ([]string, error) {
	var rows []struct {
		Key string `xorm:"'key'"`
	}
	if err := s.db.Find(&rows, `SELECT key FROM kv_entry WHERE key LIKE ?`, prefix+"%"); err != nil {
		return nil, errors.Wrapf(err, "kv list prefix %q", prefix)
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Key
	}
	return out, nil
}
