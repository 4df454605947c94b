// Package transcript persists committed captions so a session can be
// reviewed after the overlay is closed.
package transcript

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Entry is one committed caption in a session.
type Entry struct {
	Session string    `json:"session"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Store is a badger-backed append-only caption log.
type Store struct {
	db  *badger.DB
	seq atomic.Uint64
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open transcript store: %w", err)
	}
	return &Store{db: db}, nil
}

// NewSession returns a fresh session identifier.
func (s *Store) NewSession() string {
	return uuid.NewString()
}

// Append records a committed caption for a session.
func (s *Store) Append(session, text string) error {
	e := Entry{Session: session, Text: text, At: time.Now()}

	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	// Keys sort by time within a session so iteration follows speech
	// order; the sequence number breaks ties on coarse clocks.
	key := fmt.Appendf(nil, "%s/%020d-%010d", session, e.At.UnixNano(), s.seq.Add(1))

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

// Recent returns up to n captions of a session, newest first.
func (s *Store) Recent(session string, n int) ([]Entry, error) {
	prefix := []byte(session + "/")

	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts past the last key of the session.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(entries) < n; it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read entry: %w", err)
			}

			var e Entry
			if err := json.Unmarshal(value, &e); err != nil {
				return fmt.Errorf("unmarshal entry: %w", err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
