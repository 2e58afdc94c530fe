package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisBackend stores values in Redis under a key prefix. Every key written
// is also recorded in an index set so Clear removes only this backend's keys.
type RedisBackend struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithRedisPrefix sets the key prefix. Default: "reflux:storage:".
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *RedisBackend) {
		r.prefix = prefix
	}
}

// WithRedisTTL sets an expiration for stored values. Default: none.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *RedisBackend) {
		r.ttl = ttl
	}
}

// NewRedisBackend connects to the Redis server at addr.
func NewRedisBackend(addr, password string, db int, opts ...RedisOption) *RedisBackend {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisBackendFromClient(client, opts...)
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client *backend.Client, opts ...RedisOption) *RedisBackend {
	r := &RedisBackend{
		client: client,
		prefix: "reflux:storage:",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisBackend) key(k string) string {
	return r.prefix + k
}

func (r *RedisBackend) indexKey() string {
	return r.prefix + "index"
}

// Get implements Backend.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set implements Backend.
func (r *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(key), value, r.ttl)
	pipe.SAdd(ctx, r.indexKey(), key)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Clear implements Backend.
func (r *RedisBackend) Clear(ctx context.Context) error {
	members, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("redis list keys: %w", err)
	}

	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, r.key(m))
	}
	keys = append(keys, r.indexKey())

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
