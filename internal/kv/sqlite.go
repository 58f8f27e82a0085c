package kv

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a single-table SQLite database.
// It is the always-present fallback medium; every entity kind lives in
// one blob under one fixed key.
type SQLiteStore struct {
	db *sql.DB

	// quotaBytes caps the total stored value size. Zero means unlimited.
	quotaBytes int64
}

// Open opens (or creates) the key-value database under dataDir.
// quotaBytes of zero disables the quota.
func Open(dataDir string, quotaBytes int64) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "inkpad.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv schema: %w", err)
	}

	return &SQLiteStore{db: db, quotaBytes: quotaBytes}, nil
}

// GetItem returns the blob stored under key, or (nil, nil) when absent.
func (s *SQLiteStore) GetItem(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, nil
}

// SetItem stores value under key, replacing any previous blob.
// Returns ErrQuotaExceeded when the write would push the store past its
// configured quota; the previous blob is left untouched in that case.
func (s *SQLiteStore) SetItem(key string, value []byte) error {
	if s.quotaBytes > 0 {
		var used int64
		err := s.db.QueryRow(
			"SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv WHERE key != ?", key,
		).Scan(&used)
		if err != nil {
			return fmt.Errorf("failed to compute store size: %w", err)
		}
		if used+int64(len(value)) > s.quotaBytes {
			return ErrQuotaExceeded
		}
	}

	_, err := s.db.Exec(`
	INSERT INTO kv (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes the blob under key. Removing an absent key is a no-op.
func (s *SQLiteStore) RemoveItem(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to remove key %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
