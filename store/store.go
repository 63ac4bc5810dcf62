package store

import (
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by Get when no live entry exists for the key,
	// either because it was never set, was deleted, or has expired.
	ErrNotFound = fmt.Errorf("context entry not found")
)

// Store is the context store contract shared by all backends.
//
// Implementations must be safe for concurrent use: writes from concurrent
// sibling steps must not interleave, and reads observe either a fully-prior
// or fully-current value. All three operations may return an error so that
// externally backed implementations (remote key-value services) can surface
// transport failures; the in-process backends only ever return ErrNotFound
// from Get.
type Store interface {
	// Set stores value under key, overwriting any existing entry. A positive
	// ttl makes the entry unreadable after it elapses from the call time;
	// ttl <= 0 means the entry never expires.
	Set(key string, value any, ttl time.Duration) error

	// Get returns the current live value or ErrNotFound when the key is
	// absent or expired. It never returns a stale value.
	Get(key string) (any, error)

	// Delete removes the entry. It is idempotent: deleting an absent key is
	// not an error.
	Delete(key string) error
}

// entry is a stored value with its creation time and optional TTL.
type entry struct {
	value     any
	createdAt time.Time
	ttl       time.Duration
}

// expired reports whether the entry's TTL has elapsed at now. The boundary is
// exclusive: an entry is expired at exactly createdAt+ttl.
func (e entry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.createdAt) >= e.ttl
}
