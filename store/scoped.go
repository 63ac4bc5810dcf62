package store

import "time"

// scopeSeparator joins the namespace and the logical key. Namespaces
// themselves must not contain it.
const scopeSeparator = "\x1f"

// Scoped wraps a backing Store with a key namespace so that independent
// workflow runs can share one backing store (for example a bounded LRUStore
// or an external key-value service) without observing each other's keys.
//
// Scoped is a pure key-rewriting shim: TTL and overwrite semantics are those
// of the backing store.
type Scoped struct {
	backing   Store
	namespace string
}

// NewScoped wraps backing with the given namespace. An empty namespace
// returns a shim that passes keys through unchanged.
func NewScoped(backing Store, namespace string) *Scoped {
	return &Scoped{backing: backing, namespace: namespace}
}

// Namespace returns the namespace prefix applied to every key.
func (s *Scoped) Namespace() string { return s.namespace }

// Set implements Store.
func (s *Scoped) Set(key string, value any, ttl time.Duration) error {
	return s.backing.Set(s.scope(key), value, ttl)
}

// Get implements Store.
func (s *Scoped) Get(key string) (any, error) {
	return s.backing.Get(s.scope(key))
}

// Delete implements Store.
func (s *Scoped) Delete(key string) error {
	return s.backing.Delete(s.scope(key))
}

func (s *Scoped) scope(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + scopeSeparator + key
}
