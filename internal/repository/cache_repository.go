package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
)

// CacheRepository stores JSON-encoded listing payloads in Redis.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository. A nil client turns every
// read into a miss and every write into a no-op.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Get retrieves and unmarshals the cached value into dest.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set marshals value and stores it with ttl.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern removes cached entries matching a glob pattern.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// MemoryCacheRepository is the in-process fallback used when Redis is
// disabled. Entries expire after the TTL given at construction; the per-call
// ttl is ignored.
type MemoryCacheRepository struct {
	cache *expirable.LRU[string, []byte]
}

// NewMemoryCacheRepository constructs a bounded in-memory cache.
func NewMemoryCacheRepository(maxEntries int, ttl time.Duration) *MemoryCacheRepository {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &MemoryCacheRepository{cache: expirable.NewLRU[string, []byte](maxEntries, nil, ttl)}
}

// Get retrieves and unmarshals the cached value into dest.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := r.cache.Get(key)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set marshals value and stores it.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	r.cache.Add(key, payload)
	return nil
}

// DeleteByPattern removes entries whose key matches a glob pattern.
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	for _, key := range r.cache.Keys() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return fmt.Errorf("match cache pattern %s: %w", pattern, err)
		}
		if matched {
			r.cache.Remove(key)
		}
	}
	return nil
}
