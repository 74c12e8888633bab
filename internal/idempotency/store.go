package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ruleflow/internal/config"
	"ruleflow/pkg/circuitbreaker"
)

type Store interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	return ok, nil
}

func (r *RedisStore) Del(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	return nil
}

// BreakerStore fails fast while Redis is unhealthy.
type BreakerStore struct {
	next Store
	cb   *circuitbreaker.Wrapper
}

func NewBreakerStore(next Store, cfg config.CircuitBreakerConfig) Store {
	if !cfg.Enabled {
		return next
	}
	return &BreakerStore{
		next: next,
		cb:   circuitbreaker.NewWrapper(circuitbreaker.FromConfig("redis-idempotency", cfg)),
	}
}

func (s *BreakerStore) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	ok, err := circuitbreaker.Do(ctx, s.cb, func() (bool, error) {
		return s.next.SetNX(ctx, key, value, ttl)
	})
	if err != nil && s.cb.IsOpen() {
		return false, fmt.Errorf("circuit breaker is open for redis-idempotency: %w", err)
	}
	return ok, err
}

func (s *BreakerStore) Del(ctx context.Context, key string) error {
	_, err := circuitbreaker.Do(ctx, s.cb, func() (struct{}, error) {
		return struct{}{}, s.next.Del(ctx, key)
	})
	return err
}
