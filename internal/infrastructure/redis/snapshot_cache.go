package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// SnapshotCache is a QueryCache over redis strings. Values are stored as JSON
// under prefix+key so several processes tracking the same auctions share them.
type SnapshotCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, prefix string, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *SnapshotCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (r *SnapshotCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err()
}

// Invalidate deletes key and every "key:*" entry.
func (r *SnapshotCache) Invalidate(ctx context.Context, key string) error {
	keys := []string{r.prefix + key}

	iter := r.client.Scan(ctx, 0, r.prefix+key+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %s: %w", key, err)
	}

	return r.client.Del(ctx, keys...).Err()
}
