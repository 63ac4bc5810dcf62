package store

import (
	"sync"
	"time"
)

// InMemoryStore is a volatile Store implementation backed by a process local
// map. It is safe for concurrent access and is the default backing for
// workflow runs. Expired entries are skipped on read and reclaimed either on
// overwrite or by an explicit Sweep.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewInMemoryStore constructs an empty in-memory context store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]entry)}
}

// Set implements Store.
func (s *InMemoryStore) Set(key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, createdAt: time.Now(), ttl: ttl}
	return nil
}

// Get implements Store. Expired entries are reported as ErrNotFound without
// eager removal; Sweep reclaims them.
func (s *InMemoryStore) Get(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || e.expired(time.Now()) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

// Delete implements Store.
func (s *InMemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Keys returns the keys of all live (non-expired) entries. Ordering is
// unspecified.
func (s *InMemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	keys := make([]string, 0, len(s.entries))
	for k, e := range s.entries {
		if !e.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Len returns the number of live entries.
func (s *InMemoryStore) Len() int {
	return len(s.Keys())
}

// Sweep removes all expired entries and returns how many were reclaimed.
// Calling Sweep is never required for correctness.
func (s *InMemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}
