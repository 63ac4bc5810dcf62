package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_SetGet(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.Set("alpha", 42, 0))
	v, err := s.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// Overwrite replaces, never merges.
	require.NoError(t, s.Set("alpha", "replaced", 0))
	v, err = s.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "replaced", v)
}

func TestInMemoryStore_GetMissing(t *testing.T) {
	s := NewInMemoryStore()

	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_DeleteIdempotent(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.Set("k", 1, 0))
	require.NoError(t, s.Delete("k"))
	_, err := s.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent key is not an error.
	assert.NoError(t, s.Delete("k"))
}

func TestInMemoryStore_TTLExpiry(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.Set("short", "v", 30*time.Millisecond))

	v, err := s.Get("short")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	time.Sleep(50 * time.Millisecond)

	_, err = s.Get("short")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_SweepEquivalentToLazyExpiry(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.Set("a", 1, 20*time.Millisecond))
	require.NoError(t, s.Set("b", 2, 0))

	time.Sleep(40 * time.Millisecond)

	removed := s.Sweep()
	assert.Equal(t, 1, removed)

	_, err := s.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
	v, err := s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, []string{"b"}, s.Keys())
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewInMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%4)
			for j := 0; j < 100; j++ {
				_ = s.Set(key, j, 0)
				_, _ = s.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, s.Len())
}

func TestScoped_Isolation(t *testing.T) {
	backing := NewInMemoryStore()
	runA := NewScoped(backing, "run-a")
	runB := NewScoped(backing, "run-b")

	require.NoError(t, runA.Set("result", "from-a", 0))
	require.NoError(t, runB.Set("result", "from-b", 0))

	v, err := runA.Get("result")
	require.NoError(t, err)
	assert.Equal(t, "from-a", v)

	v, err = runB.Get("result")
	require.NoError(t, err)
	assert.Equal(t, "from-b", v)

	// Deleting in one scope leaves the sibling untouched.
	require.NoError(t, runA.Delete("result"))
	_, err = runA.Get("result")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = runB.Get("result")
	assert.NoError(t, err)
}

func TestLRUStore_Bounded(t *testing.T) {
	s, err := NewLRUStore(2)
	require.NoError(t, err)

	require.NoError(t, s.Set("a", 1, 0))
	require.NoError(t, s.Set("b", 2, 0))
	require.NoError(t, s.Set("c", 3, 0))

	// Least recently used entry is evicted once over capacity.
	_, err = s.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := s.Get("c")
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestLRUStore_TTL(t *testing.T) {
	s, err := NewLRUStore(8)
	require.NoError(t, err)

	require.NoError(t, s.Set("tmp", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, err = s.Get("tmp")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Len())
}
