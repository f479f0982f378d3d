package kv

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MySQLDialect stores entries in a MySQL table.
var MySQLDialect = Dialect{
	Name: "mysql",
	Migrate: []string{
		`CREATE TABLE IF NOT EXISTS kv_entries (
			entry_key VARCHAR(191) NOT NULL PRIMARY KEY,
			entry_value LONGTEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) DEFAULT CHARSET=utf8mb4`,
	},
	Get: "SELECT entry_value FROM kv_entries WHERE entry_key = ?",
	Upsert: `INSERT INTO kv_entries (entry_key, entry_value) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE entry_value = VALUES(entry_value)`,
	Delete: "DELETE FROM kv_entries WHERE entry_key = ?",
	UsedBytes: `SELECT CAST(COALESCE(SUM(LENGTH(entry_key) + LENGTH(entry_value)), 0) AS SIGNED)
		 FROM kv_entries WHERE entry_key <> ?`,
}

// OpenMySQL connects to MySQL using a go-sql-driver DSN.
func OpenMySQL(ctx context.Context, dsn string, quota int64) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql store: DSN required")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return openSQL(ctx, "mysql", cfg.FormatDSN(), MySQLDialect, quota)
}

// MySQLDSN builds a go-sql-driver DSN.
func MySQLDSN(host string, port int, user, password, database string, tls bool) string {
	if port == 0 {
		port = 3306
	}
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", host, port)
	cfg.DBName = database
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	if tls {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}
