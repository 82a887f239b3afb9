package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists entries to SQLite so a cache survives restarts.
// It is suitable for single-process use.
type SQLiteStore struct {
	db     *sql.DB
	opts   Options
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens or creates a cache database.
// The path should be a file path (e.g., "./llm-cache.db") or ":memory:" for testing.
func NewSQLiteStore(path string, opts Options) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A ":memory:" database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS llm_cache (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			stored_at INTEGER NOT NULL,
			seq INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_llm_cache_seq
		ON llm_cache(seq)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db, opts: opts}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, ErrStoreClosed
	}

	var (
		value    []byte
		storedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT value, stored_at FROM llm_cache WHERE key = ?
	`, key).Scan(&value, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load cache entry: %w", err)
	}
	if s.opts.TTL > 0 && s.opts.now().UnixNano()-storedAt >= int64(s.opts.TTL) {
		return nil, false, nil
	}
	return value, true, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.opts.now().UnixNano()
	if err := s.deleteExpired(ctx, tx, now); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO llm_cache (key, value, stored_at, seq)
		VALUES (?, ?, ?, COALESCE((SELECT MAX(seq) FROM llm_cache), 0) + 1)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			stored_at = excluded.stored_at,
			seq = (SELECT MAX(seq) FROM llm_cache) + 1
	`, key, value, now); err != nil {
		return fmt.Errorf("save cache entry: %w", err)
	}

	if s.opts.Capacity > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM llm_cache WHERE key IN (
				SELECT key FROM llm_cache ORDER BY seq DESC LIMIT -1 OFFSET ?
			)
		`, s.opts.Capacity); err != nil {
			return fmt.Errorf("evict cache entries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) deleteExpired(ctx context.Context, tx *sql.Tx, now int64) error {
	if s.opts.TTL <= 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM llm_cache WHERE stored_at <= ?
	`, now-int64(s.opts.TTL)); err != nil {
		return fmt.Errorf("delete expired entries: %w", err)
	}
	return nil
}

// Len implements Store.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	cutoff := int64(-1 << 63)
	if s.opts.TTL > 0 {
		cutoff = s.opts.now().UnixNano() - int64(s.opts.TTL)
	}
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM llm_cache WHERE stored_at > ?
	`, cutoff).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return n, nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM llm_cache`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
