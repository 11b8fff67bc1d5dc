// Package store persists users, conversations and messages in an embedded
// Pebble database.
//
// Key schema:
//
//	user:<userID>                     user profile JSON
//	pair:<a>|<b>                      conversation ID for the sorted pair (a < b)
//	conv:<convID>:meta                conversation JSON
//	conv:<convID>:msg:<msgID>         message JSON, message IDs sort in creation order
//	msg:<msgID>                       message JSON indexed by ID for direct lookup
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"baatcheet/pkg/logger"
)

// ErrNotFound is returned when a user, conversation or message does not
// resolve. Callers should test with errors.Is.
var ErrNotFound = errors.New("not found")

// Store wraps a Pebble database. It is safe for concurrent use; the mutex
// serializes conversation find-or-create so the pair index can never gain
// two entries for one unordered pair.
type Store struct {
	mu   sync.Mutex
	db   *pebble.DB
	path string
}

// Open opens (or creates) a Pebble database at the given path.
func Open(path string) (*Store, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("pebble_opened", "path", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying pebble DB if present.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func (s *Store) Ready() bool {
	return s != nil && s.db != nil
}

// get reads a raw value, translating pebble's not-found error.
func (s *Store) get(key string) ([]byte, error) {
	if s.db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	out := append([]byte(nil), v...)
	if closer != nil {
		_ = closer.Close()
	}
	return out, nil
}

// set writes a raw value synchronously.
func (s *Store) set(key string, value []byte) error {
	if s.db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	return s.db.Set([]byte(key), value, pebble.Sync)
}
