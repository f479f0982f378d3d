// Package kv provides the key-value stores the board is persisted to.
// Every backend speaks the same small contract: string values under string
// keys, an optional byte quota, and idempotent removal.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrQuotaExceeded is returned by Set when the write would push the store
	// past its byte quota. Nothing is written in that case.
	ErrQuotaExceeded = errors.New("kv: quota exceeded")
	// ErrInvalidKey is returned for keys a backend cannot represent.
	ErrInvalidKey = errors.New("kv: invalid key")
)

// Store is a string key-value store.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Close releases the underlying resources.
	Close() error
}

// Watcher is implemented by stores that can report changes made by other
// processes. onChange receives the key that changed.
type Watcher interface {
	Watch(ctx context.Context, onChange func(key string)) error
}

// Driver names a backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverFile     Driver = "file"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverMongoDB  Driver = "mongo"
)

// Options selects and configures a backend.
type Options struct {
	Driver Driver
	// DSN is the directory (file), database path (sqlite), connection string
	// (postgres, mysql) or URI (mongo).
	DSN string
	// QuotaBytes caps the summed size of keys and values. Zero disables it.
	QuotaBytes int64
}

// Open creates a Store for the given options.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryStore(opts.QuotaBytes), nil
	case DriverFile:
		return OpenFileStore(opts.DSN, opts.QuotaBytes)
	case DriverSQLite:
		return OpenSQLite(ctx, opts.DSN, opts.QuotaBytes)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.DSN, opts.QuotaBytes)
	case DriverMySQL:
		return OpenMySQL(ctx, opts.DSN, opts.QuotaBytes)
	case DriverMongoDB:
		return OpenMongo(ctx, opts.DSN, opts.QuotaBytes)
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", opts.Driver)
	}
}

// ParseDriver normalizes a driver name.
func ParseDriver(name string) (Driver, error) {
	d := Driver(strings.ToLower(strings.TrimSpace(name)))
	switch d {
	case DriverMemory, DriverFile, DriverSQLite, DriverPostgres, DriverMySQL, DriverMongoDB:
		return d, nil
	case "mongodb":
		return DriverMongoDB, nil
	case "postgresql", "pg":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported store driver: %q", name)
	}
}

func entrySize(key, value string) int64 {
	return int64(len(key) + len(value))
}

// checkQuota reports ErrQuotaExceeded when writing key=value on top of
// usedByOthers bytes (all other entries) would exceed quota.
func checkQuota(quota, usedByOthers int64, key, value string) error {
	if quota <= 0 {
		return nil
	}
	if usedByOthers+entrySize(key, value) > quota {
		return fmt.Errorf("set %q (%d bytes): %w", key, len(value), ErrQuotaExceeded)
	}
	return nil
}
