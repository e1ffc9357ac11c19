package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
)

const cacheNamespace = "vault:"

// CacheScope groups listing keys that moderation invalidates together.
type CacheScope string

const (
	CacheScopeContent CacheScope = "content"
	CacheScopeMemes   CacheScope = "memes"
)

// Pattern matches every key in the scope, in Redis SCAN syntax.
func (s CacheScope) Pattern() string {
	return cacheNamespace + string(s) + ":*"
}

// CacheKey builds "vault:<scope>:<name>[:part|part...]".
func CacheKey(scope CacheScope, name string, parts ...string) string {
	key := cacheNamespace + string(scope) + ":" + name
	if len(parts) == 0 {
		return key
	}
	return key + ":" + strings.Join(parts, "|")
}

// CacheRepository stores listing payloads. Get returns ErrCacheMiss for
// absent keys.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts the Redis or in-process listing cache. A disabled or
// failing cache degrades to direct loads and never fails a request.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get fills dest and reports a hit. Backend errors are returned alongside a
// miss so callers may log them and fall through to the database.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value under key; ttl <= 0 uses the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes keys matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// InvalidateScope drops every listing cached for scope.
func (s *CacheService) InvalidateScope(ctx context.Context, scope CacheScope) error {
	return s.Invalidate(ctx, scope.Pattern())
}

// cachedLoad serves key from cache or calls load and stores its result.
// Load errors are returned as is and never cached.
func cachedLoad[T any](ctx context.Context, cache *CacheService, key string, ttl time.Duration, load func(context.Context) (*T, error)) (*T, error) {
	var cached T
	if hit, _ := cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}
	value, err := load(ctx)
	if err != nil {
		return nil, err
	}
	_ = cache.Set(ctx, key, value, ttl)
	return value, nil
}
