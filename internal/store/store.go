// Package store caches parser results keyed by content fingerprint.
package store

import (
	"context"
	"sync"
)

// Store is a key/value cache for parsed drawings and rendered markup.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, payload []byte) error
}

// DefaultMemoryEntries bounds a MemoryStore created with a non-positive size.
const DefaultMemoryEntries = 64

// MemoryStore keeps at most max entries, evicting the oldest insert first.
type MemoryStore struct {
	mu      sync.Mutex
	max     int
	entries map[string][]byte
	order   []string
}

func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = DefaultMemoryEntries
	}
	return &MemoryStore{
		max:     max,
		entries: make(map[string][]byte),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), payload...), true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists {
		s.order = append(s.order, key)
	}
	s.entries[key] = append([]byte(nil), payload...)

	for len(s.order) > s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
	}
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
