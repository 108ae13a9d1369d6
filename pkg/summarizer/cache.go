package summarizer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// DefaultCacheTTL is how long cached chunk summaries live.
const DefaultCacheTTL = 7 * 24 * time.Hour

const cacheKeyPrefix = "minutes:summary:"

// Cache stores chunk summaries keyed by CacheKey.
type Cache interface {
	// Get returns the cached summary; ok is false on a miss.
	Get(ctx context.Context, key string) (summary ChunkSummary, ok bool, err error)

	// Set stores summary under key for ttl.
	Set(ctx context.Context, key string, summary ChunkSummary, ttl time.Duration) error

	// Close releases cache resources.
	Close() error
}

// CacheKey hashes the provider chain, continuity context and chunk content.
// The same chunk under a different chain or context gets a different key.
func CacheKey(chain []string, previousContext, content string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(strings.Join(chain, ",")))
	h.Write([]byte{0})
	h.Write([]byte(previousContext))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// RedisCache implements Cache with Redis string keys holding JSON.
type RedisCache struct {
	client *redis.Client
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheFromClient(client), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the cached summary for key.
func (c *RedisCache) Get(ctx context.Context, key string) (ChunkSummary, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ChunkSummary{}, false, nil
	}
	if err != nil {
		return ChunkSummary{}, false, fmt.Errorf("cache get: %w", err)
	}

	var s ChunkSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return ChunkSummary{}, false, fmt.Errorf("cache decode: %w", err)
	}
	return s, true, nil
}

// Set stores summary under key.
func (c *RedisCache) Set(ctx context.Context, key string, summary ChunkSummary, ttl time.Duration) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

type memoryEntry struct {
	summary ChunkSummary
	expires time.Time
}

// MemoryCache is an in-process Cache. Useful for watch mode and tests.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

// Get returns the cached summary for key. Expired entries are misses.
func (c *MemoryCache) Get(ctx context.Context, key string) (ChunkSummary, bool, error) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return ChunkSummary{}, false, nil
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return ChunkSummary{}, false, nil
	}
	return e.summary, true, nil
}

// Set stores summary under key. A ttl of zero never expires.
func (c *MemoryCache) Set(ctx context.Context, key string, summary ChunkSummary, ttl time.Duration) error {
	e := memoryEntry{summary: summary}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = e
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close empties the cache.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	c.items = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}
