// Package store implements the shared context store that threads intermediate
// results between workflow steps.
//
// The Store interface is the narrow seam behind which backends can be swapped
// without the orchestrator noticing: InMemoryStore is the volatile default,
// LRUStore bounds capacity for long-lived shared backings, SQLStore persists
// entries in a SQL database, and Scoped wraps any backing store with a
// per-run namespace so concurrent runs never observe each other's keys.
//
// TTL semantics: an entry set with a positive TTL becomes unreadable once the
// TTL elapses. Expiry is checked lazily at read time; the TTL boundary is
// exclusive, so a read at exactly created_at+ttl reports absence. Sweep can
// reclaim expired entries proactively and is observably equivalent for Get.
package store
