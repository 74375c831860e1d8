package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
)

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

// CacheStore is an in-memory implementation of driven.CacheStore.
type CacheStore struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
}

// NewCacheStore creates a new in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		entries: make(map[string]domain.CacheEntry),
	}
}

// GetEntry retrieves a cache entry by key.
func (s *CacheStore) GetEntry(_ context.Context, key string) (*domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// PutEntry upserts an entry by key.
func (s *CacheStore) PutEntry(_ context.Context, entry domain.CacheEntry) error {
	if entry.Key == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Key] = entry
	return nil
}

// DeleteEntry removes an entry by key.
func (s *CacheStore) DeleteEntry(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// TotalSize returns the cumulative entry size and entry count.
func (s *CacheStore) TotalSize(_ context.Context) (int64, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var size int64
	for _, entry := range s.entries {
		size += entry.Size()
	}
	return size, len(s.entries), nil
}

// EvictOldest removes up to n entries, oldest StoredAt first.
func (s *CacheStore) EvictOldest(_ context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := make([]domain.CacheEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].StoredAt.Before(ordered[j].StoredAt)
	})

	removed := 0
	for _, entry := range ordered {
		if removed >= n {
			break
		}
		delete(s.entries, entry.Key)
		removed++
	}
	return removed, nil
}

// PurgeAll wipes the cache.
func (s *CacheStore) PurgeAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]domain.CacheEntry)
	return nil
}
