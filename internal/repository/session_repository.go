package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "vault:session:"

// RedisSessionStore remembers, per browser session, the access token of every
// batch that session created. Each session is one Redis hash keyed by batch id.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore constructs a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Remember stores token for batchID under sessionID and refreshes the TTL.
func (s *RedisSessionStore) Remember(ctx context.Context, sessionID, batchID, token string) error {
	key := sessionKeyPrefix + sessionID
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, batchID, token)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remember session token: %w", err)
	}
	return nil
}

// Recall returns the token sessionID holds for batchID.
func (s *RedisSessionStore) Recall(ctx context.Context, sessionID, batchID string) (string, bool, error) {
	token, err := s.client.HGet(ctx, sessionKeyPrefix+sessionID, batchID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("recall session token: %w", err)
	}
	return token, true, nil
}

// Forget drops the token sessionID holds for batchID.
func (s *RedisSessionStore) Forget(ctx context.Context, sessionID, batchID string) error {
	if err := s.client.HDel(ctx, sessionKeyPrefix+sessionID, batchID).Err(); err != nil {
		return fmt.Errorf("forget session token: %w", err)
	}
	return nil
}

// MemorySessionStore keeps session tokens in a bounded in-process LRU. It is
// used in development and when Redis is disabled; entries do not survive a
// restart.
type MemorySessionStore struct {
	cache *expirable.LRU[string, string]
}

// NewMemorySessionStore constructs an in-memory session store.
func NewMemorySessionStore(maxEntries int, ttl time.Duration) *MemorySessionStore {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemorySessionStore{cache: expirable.NewLRU[string, string](maxEntries, nil, ttl)}
}

func sessionEntryKey(sessionID, batchID string) string {
	return sessionID + "|" + batchID
}

// Remember stores token for batchID under sessionID.
func (s *MemorySessionStore) Remember(_ context.Context, sessionID, batchID, token string) error {
	s.cache.Add(sessionEntryKey(sessionID, batchID), token)
	return nil
}

// Recall returns the token sessionID holds for batchID.
func (s *MemorySessionStore) Recall(_ context.Context, sessionID, batchID string) (string, bool, error) {
	token, ok := s.cache.Get(sessionEntryKey(sessionID, batchID))
	return token, ok, nil
}

// Forget drops the token sessionID holds for batchID.
func (s *MemorySessionStore) Forget(_ context.Context, sessionID, batchID string) error {
	s.cache.Remove(sessionEntryKey(sessionID, batchID))
	return nil
}
