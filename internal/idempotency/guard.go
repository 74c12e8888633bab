// Package idempotency makes redelivered triggers no-ops within a TTL window.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"ruleflow/internal/config"
	"ruleflow/internal/constants"
	"ruleflow/internal/logger"
	"ruleflow/pkg/metrics"
)

const defaultTTL = 24 * time.Hour

// Guard claims trigger ids. A nil or disabled Guard admits everything.
type Guard struct {
	store    Store
	ttl      time.Duration
	fallback string
	logger   logger.Logger
}

func NewGuard(store Store, cfg config.IdempotencyConfig, log logger.Logger) *Guard {
	if !cfg.Enabled || store == nil {
		return nil
	}

	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultTTL
	}
	fallback := cfg.OnRedisError
	if fallback != constants.FallbackReject {
		fallback = constants.FallbackAllow
	}

	return &Guard{store: store, ttl: ttl, fallback: fallback, logger: log}
}

func key(triggerID string) string {
	return constants.CacheKeyPrefixTrigger + triggerID
}

// Claim reports whether the caller is the first to see triggerID. When the
// store fails the configured fallback decides: allow admits the trigger,
// reject returns the error.
func (g *Guard) Claim(ctx context.Context, triggerID string) (bool, error) {
	if g == nil || triggerID == "" {
		return true, nil
	}

	first, err := g.store.SetNX(ctx, key(triggerID), time.Now().Unix(), g.ttl)
	if err != nil {
		metrics.IncIdempotencyCheck("error")
		if g.fallback == constants.FallbackAllow {
			metrics.FallbackUsageTotal.WithLabelValues("idempotency", "allow_on_error", "redis").Inc()
			g.logger.WarnwCtx(ctx, "Idempotency store unavailable, admitting trigger (fallback: allow)",
				"trigger_id", triggerID,
				"error", err,
			)
			return true, nil
		}
		metrics.FallbackUsageTotal.WithLabelValues("idempotency", "reject_on_error", "redis").Inc()
		return false, fmt.Errorf("idempotency check failed for trigger %s: %w", triggerID, err)
	}

	if first {
		metrics.IncIdempotencyCheck("new")
	} else {
		metrics.IncIdempotencyCheck("duplicate")
		g.logger.InfowCtx(ctx, "Duplicate trigger ignored", "trigger_id", triggerID)
	}
	return first, nil
}

// Release forgets a claim so a redelivery of triggerID runs again. Used when
// a pass fails before any rule executed.
func (g *Guard) Release(ctx context.Context, triggerID string) {
	if g == nil || triggerID == "" {
		return
	}
	if err := g.store.Del(ctx, key(triggerID)); err != nil {
		g.logger.WarnwCtx(ctx, "Failed to release trigger claim", "trigger_id", triggerID, "error", err)
	}
}
