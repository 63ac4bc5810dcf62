package store

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultLRUSize is the entry capacity used when none is configured.
const DefaultLRUSize = 1024

// LRUStore is a capacity-bounded Store backed by an LRU cache. It is intended
// as a long-lived shared backing (wrapped per-run with Scoped) where unbounded
// growth is not acceptable: the least recently used entries are evicted once
// the capacity is reached. Per-entry TTLs are honored lazily on read, exactly
// like InMemoryStore.
//
// Eviction means an LRUStore may forget live entries under pressure; use
// InMemoryStore when every write must remain readable for the whole run.
type LRUStore struct {
	cache *lru.Cache[string, entry]
}

// NewLRUStore constructs an LRUStore holding at most size entries.
// A size <= 0 falls back to DefaultLRUSize.
func NewLRUStore(size int) (*LRUStore, error) {
	if size <= 0 {
		size = DefaultLRUSize
	}
	cache, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUStore{cache: cache}, nil
}

// Set implements Store.
func (s *LRUStore) Set(key string, value any, ttl time.Duration) error {
	s.cache.Add(key, entry{value: value, createdAt: time.Now(), ttl: ttl})
	return nil
}

// Get implements Store. An expired entry is removed and reported as absent.
func (s *LRUStore) Get(key string) (any, error) {
	e, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	if e.expired(time.Now()) {
		s.cache.Remove(key)
		return nil, ErrNotFound
	}
	return e.value, nil
}

// Delete implements Store.
func (s *LRUStore) Delete(key string) error {
	s.cache.Remove(key)
	return nil
}

// Len returns the number of cached entries, including any not yet reclaimed
// expired ones.
func (s *LRUStore) Len() int { return s.cache.Len() }
