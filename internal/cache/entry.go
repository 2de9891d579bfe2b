package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/shortlink/shortlink/internal/model"
)

// EntryKeyPrefix is the key namespace for cached link projections.
// The full key format is "shortlink:" + short code.
const EntryKeyPrefix = "shortlink:"

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// EntryKey returns the cache key for a short code.
func EntryKey(shortCode string) string {
	return EntryKeyPrefix + shortCode
}

// GetEntry retrieves a cached link projection by short code.
// Returns ErrCacheMiss if no entry exists. A malformed stored payload is
// indistinguishable from an absent one: the caller falls back to the
// authoritative store instead of failing the resolution.
func (c *Cache) GetEntry(ctx context.Context, shortCode string) (*model.CacheEntry, error) {
	val, err := c.client.Get(ctx, EntryKey(shortCode)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	entry, err := model.DecodeCacheEntry(val)
	if err != nil {
		return nil, ErrCacheMiss
	}

	return entry, nil
}

// SetEntry stores a link projection under the short code key.
// Entries carry no TTL: they live until the invalidation protocol
// explicitly evicts them.
func (c *Cache) SetEntry(ctx context.Context, entry *model.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := c.client.Set(ctx, EntryKey(entry.ShortCode), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to cache entry: %w", err)
	}

	return nil
}

// DeleteEntry evicts the projection for a short code.
// Deleting an absent key is not an error.
func (c *Cache) DeleteEntry(ctx context.Context, shortCode string) error {
	if err := c.client.Del(ctx, EntryKey(shortCode)).Err(); err != nil {
		return fmt.Errorf("failed to evict cache entry: %w", err)
	}
	return nil
}
