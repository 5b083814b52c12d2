package storage

import (
	"context"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) RemoveMany(_ context.Context, keys []string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.items, k)
	}
	s.mu.Unlock()
	return nil
}

// Keys returns every key in lexical order.
func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys, nil
}
