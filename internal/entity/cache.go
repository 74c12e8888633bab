package entity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"ruleflow/internal/constants"
	"ruleflow/internal/logger"
	"ruleflow/pkg/metrics"
)

// CachedStore serves entities from Redis and falls back to the wrapped Store
// on a miss. Redis failures are logged and bypassed; not-found results are
// not cached.
type CachedStore struct {
	next   Store
	client redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(next Store, client redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func cacheKey(kind Kind, id string) string {
	return constants.CacheKeyPrefixEntity + string(kind) + ":" + id
}

func (s *CachedStore) Fetch(ctx context.Context, kind Kind, id string) (map[string]interface{}, error) {
	key := cacheKey(kind, id)

	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var entity map[string]interface{}
		if jsonErr := json.Unmarshal(raw, &entity); jsonErr == nil {
			metrics.IncEntityLookup(string(kind), "cache", "hit")
			return entity, nil
		}
		s.logger.WarnwCtx(ctx, "Discarding undecodable cached entity", "key", key)
	case err != redis.Nil:
		s.logger.WarnwCtx(ctx, "Entity cache read failed, falling back to store",
			"key", key,
			"error", err,
		)
	}
	metrics.IncEntityLookup(string(kind), "cache", "miss")

	entity, err := s.next.Fetch(ctx, kind, id)
	if err != nil {
		metrics.IncEntityLookup(string(kind), "store", "error")
		return nil, err
	}
	metrics.IncEntityLookup(string(kind), "store", "success")

	if payload, err := json.Marshal(entity); err == nil {
		if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			s.logger.WarnwCtx(ctx, "Entity cache write failed", "key", key, "error", err)
		}
	}

	// Round-trip through JSON so hits and misses yield identical value types.
	var normalized map[string]interface{}
	if payload, err := json.Marshal(entity); err == nil && json.Unmarshal(payload, &normalized) == nil {
		return normalized, nil
	}
	return entity, nil
}

// Invalidate drops a cached entity, typically after a storage change.
func (s *CachedStore) Invalidate(ctx context.Context, kind Kind, id string) error {
	return s.client.Del(ctx, cacheKey(kind, id)).Err()
}
