package postgres

import (
	"context"
	"fmt"
	"time"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/storage"
)

// SeenStore implements storage.SeenStore on the seen_candidates table.
type SeenStore struct {
	pool *Pool
}

// NewSeenStore creates a new SeenStore.
func NewSeenStore(pool *Pool) *SeenStore {
	return &SeenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SeenStore = (*SeenStore)(nil)

// MarkSeen upserts key with the given timestamp.
func (s *SeenStore) MarkSeen(ctx context.Context, key domain.Key, at time.Time) error {
	if key.Chain == "" || key.Address == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO seen_candidates (chain, address, seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (chain, address) DO UPDATE
		SET seen_at = EXCLUDED.seen_at
	`, string(key.Chain), key.Address, at.UTC())
	if err != nil {
		return fmt.Errorf("mark seen %s: %w", key, err)
	}
	return nil
}

// LoadSeen returns every key ordered by chain and address.
func (s *SeenStore) LoadSeen(ctx context.Context) ([]storage.SeenEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chain, address, seen_at
		FROM seen_candidates
		ORDER BY chain ASC, address ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load seen: %w", err)
	}
	defer rows.Close()

	var entries []storage.SeenEntry
	for rows.Next() {
		var chain, address string
		var at time.Time
		if err := rows.Scan(&chain, &address, &at); err != nil {
			return nil, fmt.Errorf("scan seen row: %w", err)
		}
		entries = append(entries, storage.SeenEntry{
			Key:    domain.Key{Chain: domain.Chain(chain), Address: address},
			SeenAt: at,
		})
	}

	return entries, rows.Err()
}

// ClearSeen removes every key.
func (s *SeenStore) ClearSeen(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM seen_candidates`); err != nil {
		return fmt.Errorf("clear seen: %w", err)
	}
	return nil
}
