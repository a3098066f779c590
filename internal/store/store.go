// Package store is the local key-value cache the patient-management client
// keeps on disk. Probes only read from it; the store command group seeds it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultKey is the key the client stores its patient list under.
const DefaultKey = "patients"

// Store wraps a SQLite database holding a single key-value table.
type Store struct {
	db       *sql.DB
	readOnly bool
}

// Open opens (or creates) the store at the given path and applies pending
// migrations. Creates the parent directory if needed.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := connect(ctx, fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath))
	if err != nil {
		return nil, err
	}

	if err := migrate(ctx, db, false); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing store without creating or migrating it.
// A missing file yields an error wrapping fs.ErrNotExist.
func OpenReadOnly(ctx context.Context, dbPath string) (*Store, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	db, err := connect(ctx, fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=query_only(1)", dbPath))
	if err != nil {
		return nil, err
	}
	return &Store{db: db, readOnly: true}, nil
}

func connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// SQLite works best with a single connection for writes
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key. The boolean is false when the key
// is absent; a missing kv table in a read-only store counts as absent too.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		if s.readOnly && isMissingTable(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if s.readOnly {
		return fmt.Errorf("put %q: store opened read-only", key)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.readOnly {
		return fmt.Errorf("delete %q: store opened read-only", key)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys in order.
func (s *Store) Keys(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, length(value), updated_at FROM kv ORDER BY key`)
	if err != nil {
		if s.readOnly && isMissingTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Size, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// IsNotExist reports whether err means the store file does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
