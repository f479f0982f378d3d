// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const permission = 0664

// Options configure the logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Path appends logs to a file instead of Writer.
	Path string
	// Writer receives logs when Path is empty. Defaults to stderr.
	Writer io.Writer
	// Console renders human-readable lines instead of JSON.
	Console bool
}

// Logger is a zerolog.Logger plus the file it may own.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New builds a Logger from opts.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	l := &Logger{}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.Path != "" {
		l.file, err = os.OpenFile(opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = zerolog.SyncWriter(l.file)
	} else if opts.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	l.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return l, nil
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps a level name to a zerolog.Level.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "off", "disabled":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", name)
	}
}
