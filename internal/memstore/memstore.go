// Package memstore implements types.Storage in memory. Nothing survives
// Detach; it backs tests and dry runs.
package memstore

import (
	"bytes"
	"context"
	"sync"

	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

// Store is an in-memory key/value store.
type Store struct {
	mu       sync.RWMutex
	attached bool
	items    map[string][]byte
}

// New returns a detached in-memory store.
func New() *Store {
	return &Store{}
}

// Attach starts with an empty item map.
func (s *Store) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	s.items = make(map[string][]byte)
	s.attached = true
	return nil
}

// Detach drops every item. Idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = false
	s.items = nil
	return nil
}

// GetItem returns a copy of the stored value.
func (s *Store) GetItem(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, types.ErrStorageDetached
	}
	v, ok := s.items[key]
	if !ok {
		return nil, types.ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

// SetItem stores a copy of value.
func (s *Store) SetItem(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return types.ErrStorageDetached
	}
	s.items[key] = bytes.Clone(value)
	return nil
}

// RemoveItem deletes key.
func (s *Store) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return types.ErrStorageDetached
	}
	delete(s.items, key)
	return nil
}
