package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "telemedicine:cache:"

// RedisBackend stores entries as plain strings with a TTL.
type RedisBackend struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisBackend panics on a nil client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	return &RedisBackend{client: client, now: time.Now}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: redis get: %w", err)
	}
	return data, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, expiry time.Time) error {
	ttl := expiry.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, redisKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}
