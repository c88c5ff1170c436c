package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/gridpursuit/pkg/gridworld"
)

func policyKey(name string) string { return "gridpursuit:policy:" + name }

// RedisStore mirrors trained policies into Redis so play sessions can pick
// them up without a shared filesystem.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a store from a connection URL.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// NewRedisStoreFromClient wraps an existing client for use in tests.
func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// SavePolicy publishes a policy's action bytes under the given name.
func (s *RedisStore) SavePolicy(ctx context.Context, name string, p *gridworld.Policy) error {
	if err := s.rdb.Set(ctx, policyKey(name), p.Bytes(), 0).Err(); err != nil {
		return fmt.Errorf("save policy %q: %w", name, err)
	}
	return nil
}

// LoadPolicy fetches a published policy. Returns nil when the name is
// unknown.
func (s *RedisStore) LoadPolicy(ctx context.Context, name string) (*gridworld.Policy, error) {
	b, err := s.rdb.Get(ctx, policyKey(name)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load policy %q: %w", name, err)
	}
	p, err := gridworld.PolicyFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("decode policy %q: %w", name, err)
	}
	return p, nil
}
