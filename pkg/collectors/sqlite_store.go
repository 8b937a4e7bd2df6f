package collectors

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore backs the cache with a single sqlite table, for deployments
// that want persistence across restarts without running Redis. Expired rows
// are treated as misses on read and purged lazily on write.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
	`

	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	query := `SELECT value, expires_at FROM cache_entries WHERE key = ?`

	var value []byte
	var expiresAt int64

	err := s.db.QueryRowContext(ctx, query, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if s.now().Unix() >= expiresAt {
		return nil, false, nil
	}

	return value, true, nil
}

func (s *SQLiteStore) Write(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
	INSERT INTO cache_entries (key, value, expires_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`

	now := s.now()
	_, err := s.db.ExecContext(ctx, query, key, value, now.Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	// Opportunistic purge keeps the table from accumulating dead rows.
	_, _ = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, now.Unix())

	return nil
}
