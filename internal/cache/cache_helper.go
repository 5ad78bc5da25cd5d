package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache entry not found")
)

// CacheConfig defines TTL and key prefix for one cache tier.
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// Session reads are hot during an attempt but must never serve data
	// older than a couple of seconds past an answer write, so the TTL is
	// short and writes invalidate aggressively.
	SessionCacheConfig = CacheConfig{
		TTL:    30 * time.Second,
		Prefix: "session:",
	}

	// Exam content barely changes while an exam is live.
	ExamCacheConfig = CacheConfig{
		TTL:    5 * time.Minute,
		Prefix: "exam:",
	}

	// Very short cache for existence probes.
	ExistsCacheConfig = CacheConfig{
		TTL:    2 * time.Minute,
		Prefix: "exists:",
	}
)

// CacheHelper provides cache-aside operations for one tier. A nil redis
// client degrades every operation to a miss or a no-op; the cache is never
// on the correctness path.
type CacheHelper struct {
	client *redis.Client
	prefix string
}

func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{client: client, prefix: prefix}
}

func (c *CacheHelper) key(key string) string {
	return c.prefix + key
}

// Get retrieves and unmarshals a cached value into dest.
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache get: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("cache unmarshal: %w", err)
	}
	return nil
}

// Set marshals and stores a value. Unavailable cache is a silent no-op.
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

func (c *CacheHelper) GetString(ctx context.Context, key string) (string, error) {
	if c.client == nil {
		return "", ErrCacheNotAvailable
	}
	v, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheNotFound
	}
	return v, err
}

func (c *CacheHelper) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

// Delete removes one or more keys.
func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// InvalidatePattern deletes all keys matching a glob pattern within this
// tier's prefix.
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	iter := c.client.Scan(ctx, 0, c.key(pattern), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// CacheOrExecute implements cache-aside: return the cached value when
// present, otherwise run fn, cache its result and unmarshal it into dest.
// Cache failures fall through to fn; they never fail the read.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}

	result, err := fn()
	if err != nil {
		return err
	}

	_ = c.Set(ctx, key, result, ttl)

	// Round-trip through JSON so dest is populated the same way a cache
	// hit would populate it.
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache result marshal: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// CacheManager bundles the cache tiers used by the repositories.
type CacheManager struct {
	client  *redis.Client
	Session *CacheHelper
	Exam    *CacheHelper
	Exists  *CacheHelper
}

func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		client:  client,
		Session: NewCacheHelper(client, SessionCacheConfig.Prefix),
		Exam:    NewCacheHelper(client, ExamCacheConfig.Prefix),
		Exists:  NewCacheHelper(client, ExistsCacheConfig.Prefix),
	}
}

// HealthCheck pings redis; a manager without a client is always healthy
// because the service runs fine without a cache.
func (m *CacheManager) HealthCheck(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Ping(ctx).Err()
}
