package cache

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/jonesrussell/competitive-scan/internal/domain"
)

// MemoryStore is an in-process Store. Entries are copied on the way in and out.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]map[string]domain.CacheEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]map[string]domain.CacheEntry)}
}

func (s *MemoryStore) Get(_ context.Context, providerName, key string) (*domain.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[providerName][key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	entry.Data = append([]byte(nil), entry.Data...)
	return &entry, nil
}

func (s *MemoryStore) Upsert(_ context.Context, entry *domain.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey, ok := s.entries[entry.Provider]
	if !ok {
		byKey = make(map[string]domain.CacheEntry)
		s.entries[entry.Provider] = byKey
	}

	stored := *entry
	stored.Data = append([]byte(nil), entry.Data...)
	byKey[entry.CacheKey] = stored
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, providerName, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries[providerName], key)
	return nil
}

func (s *MemoryStore) DeleteMatching(_ context.Context, providerName, pattern string) (int64, error) {
	if pattern == "" {
		pattern = "*"
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key := range s.entries[providerName] {
		if ok, _ := path.Match(pattern, key); ok {
			delete(s.entries[providerName], key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, byKey := range s.entries {
		n += len(byKey)
	}
	return n
}
