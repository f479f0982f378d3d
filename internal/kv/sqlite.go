package kv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteDialect stores entries in an embedded SQLite file.
var SQLiteDialect = Dialect{
	Name: "sqlite",
	Migrate: []string{
		`CREATE TABLE IF NOT EXISTS kv_entries (
			entry_key TEXT PRIMARY KEY,
			entry_value TEXT NOT NULL DEFAULT '',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	},
	Get: `SELECT entry_value FROM kv_entries WHERE entry_key = ?`,
	Upsert: `INSERT INTO kv_entries (entry_key, entry_value) VALUES (?, ?)
		 ON CONFLICT(entry_key) DO UPDATE SET entry_value = excluded.entry_value, updated_at = CURRENT_TIMESTAMP`,
	Delete: `DELETE FROM kv_entries WHERE entry_key = ?`,
	UsedBytes: `SELECT COALESCE(SUM(LENGTH(CAST(entry_key AS BLOB)) + LENGTH(CAST(entry_value AS BLOB))), 0)
		 FROM kv_entries WHERE entry_key <> ?`,
}

// OpenSQLite opens (or creates) the SQLite file at path.
func OpenSQLite(ctx context.Context, path string, quota int64) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store: path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	s, err := openSQL(ctx, "sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000", SQLiteDialect, quota)
	if err != nil {
		return nil, err
	}
	// SQLite only supports one writer
	s.conn.SetMaxOpenConns(1)
	return s, nil
}
