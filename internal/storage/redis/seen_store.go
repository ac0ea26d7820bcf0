// Package redis keeps the Seen-Set in a single Redis hash so several scanners can share it.
package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/storage"
)

// DefaultKey is the hash holding "chain:address" -> unix seconds.
const DefaultKey = "memecoin_scout:seen"

// Options configures NewClient.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects and pings Redis.
func NewClient(ctx context.Context, opts Options) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

// SeenStore implements storage.SeenStore on a Redis hash.
type SeenStore struct {
	client goredis.Cmdable
	key    string
}

// NewSeenStore creates a SeenStore. An empty key uses DefaultKey.
func NewSeenStore(client goredis.Cmdable, key string) *SeenStore {
	if key == "" {
		key = DefaultKey
	}
	return &SeenStore{client: client, key: key}
}

// Compile-time interface check.
var _ storage.SeenStore = (*SeenStore)(nil)

// MarkSeen sets the hash field for key.
func (s *SeenStore) MarkSeen(ctx context.Context, key domain.Key, at time.Time) error {
	if key.Chain == "" || key.Address == "" {
		return storage.ErrInvalidInput
	}
	if err := s.client.HSet(ctx, s.key, key.String(), strconv.FormatInt(at.Unix(), 10)).Err(); err != nil {
		return fmt.Errorf("mark seen %s: %w", key, err)
	}
	return nil
}

// LoadSeen reads the whole hash. Malformed fields are skipped.
func (s *SeenStore) LoadSeen(ctx context.Context) ([]storage.SeenEntry, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load seen: %w", err)
	}

	entries := make([]storage.SeenEntry, 0, len(fields))
	for field, value := range fields {
		chain, address, ok := strings.Cut(field, ":")
		if !ok || chain == "" || address == "" {
			continue
		}
		unix, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, storage.SeenEntry{
			Key:    domain.Key{Chain: domain.Chain(chain), Address: address},
			SeenAt: time.Unix(unix, 0),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.String() < entries[j].Key.String()
	})
	return entries, nil
}

// ClearSeen deletes the hash.
func (s *SeenStore) ClearSeen(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear seen: %w", err)
	}
	return nil
}
