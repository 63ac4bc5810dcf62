package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const createContextTableSQL = `
CREATE TABLE IF NOT EXISTS flowmesh_context (
    key TEXT PRIMARY KEY,
    value_json TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP
)`

// SQLStore persists context entries in a SQL database so workflow state can
// survive process restarts or be shared between processes. Values round-trip
// through JSON, so numeric types come back as float64 and maps as
// map[string]any.
//
// The db connection should be shared with other services using the same
// database to prevent SQLite "database is locked" errors.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLStore creates a SQL-backed Store on db and initializes its schema.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if _, err := db.Exec(createContextTableSQL); err != nil {
		return nil, fmt.Errorf("initialize context schema: %w", err)
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

// OpenSQLiteStore opens (or creates) a SQLite database at path and returns a
// Store backed by it. The caller owns closing the returned *sql.DB.
func OpenSQLiteStore(path string) (*SQLStore, *sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite database: %w", err)
	}
	s, err := NewSQLStore(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, db, nil
}

// Set implements Store. A repeated key overwrites the prior entry and
// restarts its lifetime.
func (s *SQLStore) Set(key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("serialize context value: %w", err)
	}

	now := s.now()
	var expiresAt any
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	_, err = s.db.Exec(`
INSERT INTO flowmesh_context (key, value_json, created_at, expires_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    value_json = excluded.value_json,
    created_at = excluded.created_at,
    expires_at = excluded.expires_at`,
		key, string(data), now, expiresAt)
	if err != nil {
		return fmt.Errorf("store context entry: %w", err)
	}
	return nil
}

// Get implements Store. Expired entries are removed on read.
func (s *SQLStore) Get(key string) (any, error) {
	var (
		data      string
		expiresAt sql.NullTime
	)
	err := s.db.QueryRow(
		`SELECT value_json, expires_at FROM flowmesh_context WHERE key = ?`, key,
	).Scan(&data, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read context entry: %w", err)
	}

	if expiresAt.Valid && !s.now().Before(expiresAt.Time) {
		_, _ = s.db.Exec(`DELETE FROM flowmesh_context WHERE key = ?`, key)
		return nil, ErrNotFound
	}

	var value any
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		return nil, fmt.Errorf("deserialize context value: %w", err)
	}
	return value, nil
}

// Delete implements Store. Deleting a missing key is not an error.
func (s *SQLStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM flowmesh_context WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete context entry: %w", err)
	}
	return nil
}

// Sweep removes all expired entries and reports how many were dropped.
func (s *SQLStore) Sweep() (int, error) {
	res, err := s.db.Exec(
		`DELETE FROM flowmesh_context WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.now(),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep context entries: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
