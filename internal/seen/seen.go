// Package seen tracks the tokens that were already published so later scans skip them.
//
// Only the scanner's publishing phase writes to the Set. Reads are safe from any goroutine.
package seen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/storage"
)

// Options configures New.
type Options struct {
	// Store persists marks across restarts. Nil keeps the Set in memory only.
	Store storage.SeenStore
	// TTL makes a mark expire. 0 keeps marks forever.
	TTL    time.Duration
	Logger *zerolog.Logger
}

// Set is the Seen-Set keyed by (chain, address).
type Set struct {
	mu     sync.RWMutex
	keys   map[domain.Key]time.Time
	store  storage.SeenStore
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// New creates an empty Set. Call Load to warm it from the store.
func New(opts Options) *Set {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Set{
		keys:   make(map[domain.Key]time.Time),
		store:  opts.Store,
		ttl:    opts.TTL,
		now:    time.Now,
		logger: logger.With().Str("component", "seen").Logger(),
	}
}

// ShouldProcess reports whether the token has not been published yet, or its mark expired.
func (s *Set) ShouldProcess(chain domain.Chain, address string) bool {
	key := domain.NewKey(chain, address)

	s.mu.RLock()
	at, ok := s.keys[key]
	s.mu.RUnlock()

	return !ok || s.expired(at)
}

// MarkProcessed records the token. The in-memory mark always happens; a store failure
// is returned so the caller can log it.
func (s *Set) MarkProcessed(ctx context.Context, chain domain.Chain, address string) error {
	key := domain.NewKey(chain, address)
	now := s.now()

	s.mu.Lock()
	s.keys[key] = now
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	if err := s.store.MarkSeen(ctx, key, now); err != nil {
		return fmt.Errorf("persist seen %s: %w", key, err)
	}
	return nil
}

// Load merges the persisted marks into the Set, skipping expired ones, and returns how
// many were loaded.
func (s *Set) Load(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	entries, err := s.store.LoadSeen(ctx)
	if err != nil {
		return 0, fmt.Errorf("load seen set: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range entries {
		if s.expired(e.SeenAt) {
			continue
		}
		key := domain.NewKey(e.Key.Chain, e.Key.Address)
		if prev, ok := s.keys[key]; ok && prev.After(e.SeenAt) {
			continue
		}
		s.keys[key] = e.SeenAt
		n++
	}
	s.logger.Info().Int("loaded", n).Int("stored", len(entries)).Msg("seen set loaded")
	return n, nil
}

// Reset clears the Set and the store.
func (s *Set) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.keys = make(map[domain.Key]time.Time)
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	if err := s.store.ClearSeen(ctx); err != nil {
		return fmt.Errorf("clear seen store: %w", err)
	}
	return nil
}

// Prune drops expired marks from memory and returns how many were dropped.
func (s *Set) Prune() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, at := range s.keys {
		if s.expired(at) {
			delete(s.keys, k)
			n++
		}
	}
	return n
}

// Len returns the number of marks, expired ones included until Prune.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

func (s *Set) expired(at time.Time) bool {
	return s.ttl > 0 && s.now().Sub(at) >= s.ttl
}
