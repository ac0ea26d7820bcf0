package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/storage"
)

// SeenStore is an in-memory implementation of storage.SeenStore.
type SeenStore struct {
	mu   sync.RWMutex
	seen map[domain.Key]time.Time
}

// NewSeenStore creates a new in-memory seen store.
func NewSeenStore() *SeenStore {
	return &SeenStore{
		seen: make(map[domain.Key]time.Time),
	}
}

// Compile-time interface check.
var _ storage.SeenStore = (*SeenStore)(nil)

// MarkSeen records key.
func (s *SeenStore) MarkSeen(_ context.Context, key domain.Key, at time.Time) error {
	if key.Chain == "" || key.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen[key] = at
	return nil
}

// LoadSeen returns every key ordered by chain and address.
func (s *SeenStore) LoadSeen(_ context.Context) ([]storage.SeenEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]storage.SeenEntry, 0, len(s.seen))
	for k, at := range s.seen {
		entries = append(entries, storage.SeenEntry{Key: k, SeenAt: at})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Key.Chain != entries[j].Key.Chain {
			return entries[i].Key.Chain < entries[j].Key.Chain
		}
		return entries[i].Key.Address < entries[j].Key.Address
	})
	return entries, nil
}

// ClearSeen removes every key.
func (s *SeenStore) ClearSeen(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen = make(map[domain.Key]time.Time)
	return nil
}
