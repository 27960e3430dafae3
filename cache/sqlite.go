package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists cache entries in a SQLite database, surviving client
// restarts. Entries past their expiry are not served but stay on disk until
// the next Set for the same key overwrites them.
type SQLiteStore struct {
	db *sqlx.DB
}

type sqliteEntry struct {
	Key         string `db:"key"`
	StatusCode  int    `db:"status_code"`
	Body        []byte `db:"body"`
	ContentType string `db:"content_type"`
	CachedAt    int64  `db:"cached_at"`
	ExpiresAt   int64  `db:"expires_at"`
}

// NewSQLiteStore opens (or creates) the cache database at path and ensures
// the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS response_cache_v1 (
			key TEXT PRIMARY KEY,
			status_code INTEGER NOT NULL,
			body BLOB NOT NULL,
			content_type TEXT NOT NULL,
			cached_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the entry for key, or nil if absent or expired
func (ss *SQLiteStore) Get(ctx context.Context, key string) (*Entry, error) {
	if key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}

	var row sqliteEntry
	err := ss.db.GetContext(ctx, &row,
		`SELECT key, status_code, body, content_type, cached_at, expires_at
		 FROM response_cache_v1 WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if time.Now().Unix() >= row.ExpiresAt {
		return nil, nil
	}

	return &Entry{
		Key:         row.Key,
		StatusCode:  row.StatusCode,
		Body:        row.Body,
		ContentType: row.ContentType,
		CachedAt:    time.Unix(row.CachedAt, 0),
		ExpiresAt:   time.Unix(row.ExpiresAt, 0),
	}, nil
}

// Set stores the entry under key with the given TTL, replacing any previous
// entry for the same key
func (ss *SQLiteStore) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}

	now := time.Now()
	_, err := ss.db.ExecContext(ctx,
		`INSERT INTO response_cache_v1 (key, status_code, body, content_type, cached_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT(key) DO UPDATE SET
			status_code = excluded.status_code,
			body = excluded.body,
			content_type = excluded.content_type,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at`,
		key, entry.StatusCode, entry.Body, entry.ContentType,
		now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// Delete removes the entry for key
func (ss *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := ss.db.ExecContext(ctx,
		`DELETE FROM response_cache_v1 WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (ss *SQLiteStore) Close() error {
	return ss.db.Close()
}
