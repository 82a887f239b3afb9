package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "docflow:llmcache:"

// RedisStore keeps entries in Redis so several processes share one cache.
// Values are plain keys expiring with the TTL; a sorted set scored by
// insertion time orders them for eviction.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	opts      Options
	ownClient bool
	closed    atomic.Bool
}

// NewRedisStore wraps an existing client. The caller keeps ownership of it.
func NewRedisStore(client *redis.Client, prefix string, opts Options) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, opts: opts}
}

// NewRedisStoreFromEnv connects using REDIS_URL.
func NewRedisStoreFromEnv(ctx context.Context, opts Options) (*RedisStore, error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL environment variable is required")
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(redisOpts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := NewRedisStore(client, "", opts)
	store.ownClient = true
	return store, nil
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

func (r *RedisStore) indexKey() string {
	return r.prefix + "index"
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.closed.Load() {
		return nil, false, ErrStoreClosed
	}
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired by Redis; drop the stale index member.
			r.client.ZRem(ctx, r.indexKey(), key)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return data, true, nil
}

// Set implements Store.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	now := r.opts.now()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		ttl := r.opts.TTL
		if ttl < 0 {
			ttl = 0
		}
		pipe.Set(ctx, r.key(key), value, ttl)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(now.UnixNano()), Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}

	if err := r.pruneExpired(ctx); err != nil {
		return err
	}
	return r.evict(ctx)
}

// evict pops the oldest members until the index fits the capacity.
func (r *RedisStore) evict(ctx context.Context) error {
	if r.opts.Capacity <= 0 {
		return nil
	}
	size, err := r.client.ZCard(ctx, r.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to count cache entries: %w", err)
	}
	excess := size - int64(r.opts.Capacity)
	if excess <= 0 {
		return nil
	}
	popped, err := r.client.ZPopMin(ctx, r.indexKey(), excess).Result()
	if err != nil {
		return fmt.Errorf("failed to evict cache entries: %w", err)
	}
	keys := make([]string, 0, len(popped))
	for _, z := range popped {
		if member, ok := z.Member.(string); ok {
			keys = append(keys, r.key(member))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete evicted entries: %w", err)
	}
	return nil
}

// pruneExpired removes index members whose values Redis has already expired.
func (r *RedisStore) pruneExpired(ctx context.Context) error {
	if r.opts.TTL <= 0 {
		return nil
	}
	cutoff := r.opts.now().Add(-r.opts.TTL).UnixNano()
	err := r.client.ZRemRangeByScore(ctx, r.indexKey(), "-inf", strconv.FormatInt(cutoff, 10)).Err()
	if err != nil {
		return fmt.Errorf("failed to prune cache index: %w", err)
	}
	return nil
}

// Len implements Store.
func (r *RedisStore) Len(ctx context.Context) (int, error) {
	if r.closed.Load() {
		return 0, ErrStoreClosed
	}
	if err := r.pruneExpired(ctx); err != nil {
		return 0, err
	}
	n, err := r.client.ZCard(ctx, r.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return int(n), nil
}

// Clear implements Store.
func (r *RedisStore) Clear(ctx context.Context) error {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	members, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list cache entries: %w", err)
	}
	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, r.key(m))
	}
	keys = append(keys, r.indexKey())
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// HealthCheck pings the server.
func (r *RedisStore) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close implements Store. The client is only closed when the store created it.
func (r *RedisStore) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	if r.ownClient {
		return r.client.Close()
	}
	return nil
}
