// Package config loads settings from the environment and command-line flags.
// Flags override environment variables, which override defaults.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"

	"stickers/internal/domain"
	"stickers/internal/kv"
)

// Config holds every setting the CLI and MCP server need.
type Config struct {
	Store          string  `env:"STICKERS_STORE"           envDefault:"file"`
	DSN            string  `env:"STICKERS_DSN"`
	DataDir        string  `env:"STICKERS_DATA_DIR"`
	QuotaBytes     int64   `env:"STICKERS_QUOTA_BYTES"     envDefault:"5242880"`
	ViewportWidth  float64 `env:"STICKERS_VIEWPORT_WIDTH"  envDefault:"1440"`
	ViewportHeight float64 `env:"STICKERS_VIEWPORT_HEIGHT" envDefault:"900"`
	LogLevel       string  `env:"STICKERS_LOG_LEVEL"       envDefault:"info"`
	LogFile        string  `env:"STICKERS_LOG_FILE"`

	PollInterval time.Duration `env:"STICKERS_POLL_INTERVAL" envDefault:"2s"`
}

// Parse reads environ (as from os.Environ, converted with env.ToMap) and then
// the flags in args. The remaining positional arguments are returned.
func Parse(fs *pflag.FlagSet, args []string, environ map[string]string) (Config, []string, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, nil, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Store, "store", cfg.Store, "storage backend: memory, file, sqlite, postgres, mysql, mongo")
	fs.StringVar(&cfg.DSN, "dsn", cfg.DSN, "directory, database path, connection string or URI for the store")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory for file and sqlite stores")
	fs.Int64Var(&cfg.QuotaBytes, "quota", cfg.QuotaBytes, "storage quota in bytes (0 = unlimited)")
	fs.Float64Var(&cfg.ViewportWidth, "width", cfg.ViewportWidth, "viewport width in pixels")
	fs.Float64Var(&cfg.ViewportHeight, "height", cfg.ViewportHeight, "viewport height in pixels")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "append logs to this file instead of stderr")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "how often watch polls database stores for changes")
	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, nil, err
	}
	return cfg, fs.Args(), nil
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	return env.ToMap(os.Environ())
}

// Validate checks values that cannot be expressed with struct tags.
func (c Config) Validate() error {
	if _, err := kv.ParseDriver(c.Store); err != nil {
		return err
	}
	if !positiveFinite(c.ViewportWidth) || !positiveFinite(c.ViewportHeight) {
		return fmt.Errorf("viewport must be positive, got %gx%g", c.ViewportWidth, c.ViewportHeight)
	}
	if c.QuotaBytes < 0 {
		return fmt.Errorf("quota must not be negative")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Viewport returns the configured viewport.
func (c Config) Viewport() domain.Viewport {
	return domain.Viewport{Width: c.ViewportWidth, Height: c.ViewportHeight}
}

// StoreOptions resolves the backend options, filling in default locations
// under the data directory for file and sqlite stores.
func (c Config) StoreOptions() (kv.Options, error) {
	driver, err := kv.ParseDriver(c.Store)
	if err != nil {
		return kv.Options{}, err
	}
	opts := kv.Options{Driver: driver, DSN: c.DSN, QuotaBytes: c.QuotaBytes}
	if opts.DSN != "" {
		return opts, nil
	}
	switch driver {
	case kv.DriverFile, kv.DriverSQLite:
		dir, err := c.dataDir()
		if err != nil {
			return kv.Options{}, err
		}
		if driver == kv.DriverFile {
			opts.DSN = filepath.Join(dir, "board")
		} else {
			opts.DSN = filepath.Join(dir, "stickers.db")
		}
	case kv.DriverPostgres, kv.DriverMySQL, kv.DriverMongoDB:
		return kv.Options{}, fmt.Errorf("%s store needs --dsn or STICKERS_DSN", driver)
	}
	return opts, nil
}

func (c Config) dataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "stickers"), nil
}
