package kv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

var (
	_ Store   = (*FileStore)(nil)
	_ Watcher = (*FileStore)(nil)
)

// FileStore keeps one file per key inside a directory. Writes go through a
// temporary file and a rename so readers never see a torn value.
type FileStore struct {
	dir   string
	quota int64

	mu sync.Mutex
	// own remembers what this store last wrote per key (nil = removed) so
	// the watcher can tell our own writes from other processes' edits.
	own map[string]*string
}

// OpenFileStore creates the directory if needed and returns a FileStore.
func OpenFileStore(dir string, quota int64) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: directory required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{dir: dir, quota: quota, own: make(map[string]*string)}, nil
}

func validFileKey(key string) bool {
	return key != "" &&
		!strings.HasPrefix(key, ".") &&
		!strings.ContainsAny(key, `/\`) &&
		filepath.Base(key) == key
}

func (s *FileStore) path(key string) (string, error) {
	if !validFileKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key), nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %q: %w", key, err)
	}
	return string(data), true, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quota > 0 {
		used, err := s.usedBytes(key)
		if err != nil {
			return err
		}
		if err := checkQuota(s.quota, used, key, value); err != nil {
			return err
		}
	}

	tmp := filepath.Join(s.dir, "."+key+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, []byte(value), 0644); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %q: %w", key, err)
	}
	s.own[key] = &value
	return nil
}

func (s *FileStore) Remove(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	s.own[key] = nil
	return nil
}

func (s *FileStore) Close() error { return nil }

// usedBytes sums key and value sizes of every entry except skip.
func (s *FileStore) usedBytes(skip string) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list store directory: %w", err)
	}
	var used int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == skip || !validFileKey(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		used += int64(len(name)) + info.Size()
	}
	return used, nil
}

// Watch blocks until ctx is done, calling onChange whenever another process
// creates, rewrites or removes an entry.
func (s *FileStore) Watch(ctx context.Context, onChange func(key string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			key := filepath.Base(event.Name)
			if !validFileKey(key) || s.isOwnState(ctx, key) {
				continue
			}
			onChange(key)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher: %w", err)
		}
	}
}

// isOwnState reports whether the entry on disk matches what this store last
// wrote, i.e. the event was caused by us.
func (s *FileStore) isOwnState(ctx context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, tracked := s.own[key]
	if !tracked {
		return false
	}
	current, exists, err := s.Get(ctx, key)
	if err != nil {
		return false
	}
	if last == nil {
		return !exists
	}
	return exists && current == *last
}
