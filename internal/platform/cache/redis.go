package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRedisTimeout bounds every Redis round trip made by Redis.
const DefaultRedisTimeout = 500 * time.Millisecond

// redisClient is the subset of *redis.Client used by Redis.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// Redis is a Store shared between processes. Values are JSON encoded and
// expire server-side. Redis failures are logged and surface as misses.
type Redis[V any] struct {
	client  redisClient
	prefix  string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewRedisClient parses a redis:// URL and returns a connected client.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewRedis wraps client. Every key is stored under prefix.
func NewRedis[V any](client redisClient, prefix string, logger zerolog.Logger) *Redis[V] {
	return &Redis[V]{
		client:  client,
		prefix:  prefix,
		timeout: DefaultRedisTimeout,
		logger:  logger,
	}
}

func (r *Redis[V]) key(k string) string { return r.prefix + k }

func (r *Redis[V]) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *Redis[V]) Get(key string) (V, bool) {
	var zero V
	ctx, cancel := r.ctx()
	defer cancel()

	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("redis cache get failed")
		return zero, false
	}

	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("redis cache entry undecodable, evicting")
		r.client.Del(ctx, r.key(key))
		return zero, false
	}
	return v, true
}

func (r *Redis[V]) Set(key string, value V, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("redis cache value unencodable")
		return
	}
	ctx, cancel := r.ctx()
	defer cancel()
	if err := r.client.Set(ctx, r.key(key), raw, ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("redis cache set failed")
	}
}

// Has reports whether Get would return a value for key.
func (r *Redis[V]) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Clear deletes the given keys, or every key under the prefix when called
// without keys.
func (r *Redis[V]) Clear(keys ...string) {
	ctx, cancel := r.ctx()
	defer cancel()

	if len(keys) > 0 {
		full := make([]string, len(keys))
		for i, k := range keys {
			full[i] = r.key(k)
		}
		if err := r.client.Del(ctx, full...).Err(); err != nil {
			r.logger.Warn().Err(err).Strs("keys", keys).Msg("redis cache delete failed")
		}
		return
	}

	var cursor uint64
	for {
		found, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			r.logger.Warn().Err(err).Msg("redis cache scan failed")
			return
		}
		if len(found) > 0 {
			if err := r.client.Del(ctx, found...).Err(); err != nil {
				r.logger.Warn().Err(err).Msg("redis cache delete failed")
				return
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}
