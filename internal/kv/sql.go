package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var _ Store = (*SQLStore)(nil)

// Dialect holds the statements that differ between SQL engines.
type Dialect struct {
	Name    string
	Migrate []string
	Get     string
	Upsert  string
	Delete  string
	// UsedBytes sums key and value bytes of every row except the one bound
	// to the single parameter.
	UsedBytes string
}

// SQLStore implements Store on top of a single kv_entries table.
type SQLStore struct {
	conn    *sql.DB
	dialect Dialect
	quota   int64
}

// NewSQLStore wraps an open connection and runs the dialect's migrations.
func NewSQLStore(ctx context.Context, conn *sql.DB, dialect Dialect, quota int64) (*SQLStore, error) {
	s := &SQLStore{conn: conn, dialect: dialect, quota: quota}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func openSQL(ctx context.Context, driverName, dsn string, dialect Dialect, quota int64) (*SQLStore, error) {
	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	s, err := NewSQLStore(ctx, conn, dialect, quota)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, m := range s.dialect.Migrate {
		if _, err := s.conn.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("%s migration failed: %w", s.dialect.Name, err)
		}
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, s.dialect.Get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if s.quota > 0 {
		var used int64
		if err := s.conn.QueryRowContext(ctx, s.dialect.UsedBytes, key).Scan(&used); err != nil {
			return fmt.Errorf("measure store: %w", err)
		}
		if err := checkQuota(s.quota, used, key, value); err != nil {
			return err
		}
	}
	if _, err := s.conn.ExecContext(ctx, s.dialect.Upsert, key, value); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, s.dialect.Delete, key); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.conn.Close()
}
