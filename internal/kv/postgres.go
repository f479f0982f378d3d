package kv

import (
	"context"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresDialect stores entries in a Postgres table.
var PostgresDialect = Dialect{
	Name: "postgres",
	Migrate: []string{
		`CREATE TABLE IF NOT EXISTS kv_entries (
			entry_key TEXT PRIMARY KEY,
			entry_value TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	Get: `SELECT entry_value FROM kv_entries WHERE entry_key = $1`,
	Upsert: `INSERT INTO kv_entries (entry_key, entry_value) VALUES ($1, $2)
		 ON CONFLICT (entry_key) DO UPDATE SET entry_value = EXCLUDED.entry_value, updated_at = NOW()`,
	Delete: `DELETE FROM kv_entries WHERE entry_key = $1`,
	UsedBytes: `SELECT COALESCE(SUM(OCTET_LENGTH(entry_key) + OCTET_LENGTH(entry_value)), 0)::BIGINT
		 FROM kv_entries WHERE entry_key <> $1`,
}

// OpenPostgres connects to Postgres using a lib/pq connection string.
func OpenPostgres(ctx context.Context, dsn string, quota int64) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres store: connection string required")
	}
	return openSQL(ctx, "postgres", dsn, PostgresDialect, quota)
}

// PostgresDSN builds a lib/pq keyword/value connection string.
func PostgresDSN(host string, port int, user, password, database, sslMode string) string {
	if port == 0 {
		port = 5432
	}
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, database, sslMode,
	)
}
