package kv

import (
	"context"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps entries in a map. Used for tests and throwaway sessions.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]string
	quota int64
}

// NewMemoryStore creates an empty MemoryStore. quota <= 0 means unlimited.
func NewMemoryStore(quota int64) *MemoryStore {
	return &MemoryStore{data: make(map[string]string), quota: quota}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var used int64
	for k, v := range s.data {
		if k != key {
			used += entrySize(k, v)
		}
	}
	if err := checkQuota(s.quota, used, key, value); err != nil {
		return err
	}
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len returns the number of entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) Close() error { return nil }
