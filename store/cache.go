// Package store keeps per-thread values in a key/value cache.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

type Cache[S any] interface {
	Set(ctx context.Context, key string, val S) error
	Get(ctx context.Context, key string) (S, bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type MemoryCache[S any] struct {
	mu sync.RWMutex
	m  map[string]S
}

func NewMemoryCache[S any]() *MemoryCache[S] {
	return &MemoryCache[S]{m: map[string]S{}}
}

func (m *MemoryCache[S]) Set(ctx context.Context, key string, val S) error {
	m.mu.Lock()
	m.m[key] = val
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	m.mu.RLock()
	val, ok := m.m[key]
	m.mu.RUnlock()
	return val, ok, nil
}

func (m *MemoryCache[S]) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.m, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	_, ok := m.m[key]
	m.mu.RUnlock()
	return ok, nil
}

// RedisCache stores JSON-encoded values with a TTL refreshed on every Set.
type RedisCache[S any] struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCache[S any](client redis.Cmdable, ttl time.Duration) *RedisCache[S] {
	return &RedisCache[S]{client: client, ttl: ttl}
}

func (c *RedisCache[S]) Set(ctx context.Context, key string, val S) error {
	data, err := sonic.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *RedisCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	var zero S
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	var val S
	if err := sonic.Unmarshal(data, &val); err != nil {
		return zero, false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return val, true, nil
}

func (c *RedisCache[S]) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	return n > 0, err
}
