// Package cache caches generation numbers read back from the consumer contract.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrMiss is returned by Get when the key is not cached.
var ErrMiss = errors.New("cache: miss")

const keyPrefix = "starknet_randomness:numbers:"

// NumbersCache stores the numbers recorded for a generation id.
type NumbersCache interface {
	Get(ctx context.Context, consumer string, generationID uint64) ([]uint64, error)
	Set(ctx context.Context, consumer string, generationID uint64, numbers []uint64) error
	Close() error
}

// kv is the subset of the redis client the cache uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisConfig configures a RedisCache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache is a NumbersCache backed by redis.
type RedisCache struct {
	client kv
	ttl    time.Duration
}

// NewRedisCache connects to redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisCache(client, cfg.TTL), nil
}

func newRedisCache(client kv, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, consumer string, generationID uint64) ([]uint64, error) {
	raw, err := c.client.Get(ctx, key(consumer, generationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}

	var numbers []uint64
	if err := json.Unmarshal(raw, &numbers); err != nil {
		return nil, fmt.Errorf("decode cached numbers: %w", err)
	}
	return numbers, nil
}

func (c *RedisCache) Set(ctx context.Context, consumer string, generationID uint64, numbers []uint64) error {
	raw, err := json.Marshal(numbers)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(consumer, generationID), raw, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func key(consumer string, generationID uint64) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, consumer, generationID)
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string, uint64) ([]uint64, error) { return nil, ErrMiss }
func (NopCache) Set(context.Context, string, uint64, []uint64) error   { return nil }
func (NopCache) Close() error                                          { return nil }
