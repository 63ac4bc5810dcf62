package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	s, db, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "context.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return s
}

func TestSQLStore_SetGetDelete(t *testing.T) {
	s := newSQLStore(t)

	require.NoError(t, s.Set("doc", map[string]any{"title": "report", "pages": 3}, 0))

	v, err := s.Get("doc")
	require.NoError(t, err)
	// JSON round-trip yields float64 for numbers.
	assert.Equal(t, map[string]any{"title": "report", "pages": float64(3)}, v)

	// Overwrite replaces, not merges.
	require.NoError(t, s.Set("doc", "replaced", 0))
	v, err = s.Get("doc")
	require.NoError(t, err)
	assert.Equal(t, "replaced", v)

	require.NoError(t, s.Delete("doc"))
	_, err = s.Get("doc")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is fine.
	assert.NoError(t, s.Delete("doc"))
}

func TestSQLStore_GetMissing(t *testing.T) {
	s := newSQLStore(t)
	_, err := s.Get("never-set")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_TTLExpiry(t *testing.T) {
	s := newSQLStore(t)
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set("ephemeral", "v", 50*time.Millisecond))
	require.NoError(t, s.Set("durable", "v", 0))

	_, err := s.Get("ephemeral")
	assert.NoError(t, err)

	now = now.Add(50 * time.Millisecond)
	_, err = s.Get("ephemeral")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get("durable")
	assert.NoError(t, err)

	// Re-setting restarts the lifetime.
	require.NoError(t, s.Set("ephemeral", "v2", 50*time.Millisecond))
	_, err = s.Get("ephemeral")
	assert.NoError(t, err)
}

func TestSQLStore_Sweep(t *testing.T) {
	s := newSQLStore(t)
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set("a", 1, 10*time.Millisecond))
	require.NoError(t, s.Set("b", 2, 10*time.Millisecond))
	require.NoError(t, s.Set("c", 3, 0))

	now = now.Add(time.Second)
	n, err := s.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Get("c")
	assert.NoError(t, err)
}

func TestSQLStore_WorksUnderScoped(t *testing.T) {
	s := newSQLStore(t)

	run1 := NewScoped(s, "run-1")
	run2 := NewScoped(s, "run-2")

	require.NoError(t, run1.Set("k", "one", 0))
	require.NoError(t, run2.Set("k", "two", 0))

	v, err := run1.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "one", v)

	v, err = run2.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}
