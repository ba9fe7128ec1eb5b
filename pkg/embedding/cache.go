package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-act-advisor-be/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// VectorCache stores embeddings by key. A miss is (nil, false, nil).
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

// CachedProvider memoises a Provider. The corpus is re-embedded on every
// start, so a warm cache turns index build into a series of lookups.
type CachedProvider struct {
	next      Provider
	cache     VectorCache
	namespace string
	logger    logger.ILogger
}

func NewCachedProvider(next Provider, c VectorCache, namespace string, log logger.ILogger) *CachedProvider {
	return &CachedProvider{next: next, cache: c, namespace: namespace, logger: log}
}

func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(p.namespace, text)

	vec, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.Warn("EMBEDDING", "Cache read failed, embedding directly", map[string]interface{}{
			"error": err.Error(),
		})
	} else if ok {
		return vec, nil
	}

	vec, err = p.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, vec); err != nil {
		p.logger.Warn("EMBEDDING", "Cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return vec, nil
}

// CacheKey derives a stable key from the model namespace and the text hash.
func CacheKey(namespace, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embedding:%s:%s", namespace, hex.EncodeToString(sum[:]))
}

// RedisVectorCache keeps vectors as JSON arrays in redis.
type RedisVectorCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisVectorCache(rdb redis.Cmdable, ttl time.Duration) *RedisVectorCache {
	return &RedisVectorCache{rdb: rdb, ttl: ttl}
}

func (c *RedisVectorCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false, fmt.Errorf("decode cached vector: %w", err)
	}
	return vec, true, nil
}

func (c *RedisVectorCache) Set(ctx context.Context, key string, vec []float32) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// MemoryVectorCache is a process-local VectorCache on go-cache.
type MemoryVectorCache struct {
	cache *cache.Cache
}

// NewMemoryVectorCache creates a cache; ttl 0 keeps entries for the process lifetime.
func NewMemoryVectorCache(ttl time.Duration) *MemoryVectorCache {
	expiration := ttl
	if ttl <= 0 {
		expiration = cache.NoExpiration
	}
	return &MemoryVectorCache{cache: cache.New(expiration, 10*time.Minute)}
}

func (c *MemoryVectorCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	if x, found := c.cache.Get(key); found {
		return x.([]float32), true, nil
	}
	return nil, false, nil
}

func (c *MemoryVectorCache) Set(_ context.Context, key string, vec []float32) error {
	c.cache.Set(key, vec, cache.DefaultExpiration)
	return nil
}
