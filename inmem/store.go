// Package inmem provides an in-process safecheck.KeyValueStore.
package inmem

import (
	"context"
	"sync"

	"github.com/dukerupert/safecheck"
)

// Compile-time interface check
var _ safecheck.KeyValueStore = (*Store)(nil)

// Store keeps values in a map. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]safecheck.Entry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]safecheck.Entry)}
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (safecheck.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return safecheck.Entry{}, nil
	}
	return safecheck.Entry{Value: append([]byte(nil), e.Value...), Revision: e.Revision}, nil
}

// Put stores value if key is still at the expected revision.
func (s *Store) Put(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.entries[key].Revision
	if cur != expected {
		return 0, safecheck.Conflict("Key %q is at revision %d, expected %d", key, cur, expected)
	}
	rev := cur + 1
	s.entries[key] = safecheck.Entry{Value: append([]byte(nil), value...), Revision: rev}
	return rev, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
