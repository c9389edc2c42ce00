// SPDX-License-Identifier: MIT

// Package playerstore persists player-session snapshots so a reconnecting
// viewer resumes where they left off.
package playerstore

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when a viewer has no stored snapshot.
var ErrNotFound = errors.New("playerstore: snapshot not found")

// snapshotTTL bounds how long an abandoned snapshot survives.
const snapshotTTL = 7 * 24 * time.Hour

const keyPrefix = "player:"

// Store is a BadgerDB-backed snapshot store. Keys: "player:<viewerID>" (JSON).
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the snapshot database at dir. An empty dir opens an
// in-memory store, used by tests and by deployments that opt out of resume.
func Open(dir string) (*Store, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Save stores a snapshot for the viewer.
func (s *Store) Save(viewerID string, snapshot any) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(keyPrefix+viewerID), buf).WithTTL(snapshotTTL)
		return txn.SetEntry(e)
	})
}

// Load reads the viewer's snapshot into out.
func (s *Store) Load(viewerID string, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + viewerID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// Delete removes the viewer's snapshot. Absent keys are not an error.
func (s *Store) Delete(viewerID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + viewerID))
	})
}
