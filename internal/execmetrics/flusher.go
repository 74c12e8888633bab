package execmetrics

import (
	"context"
	"strings"
	"time"

	"ruleflow/internal/catalog"
	"ruleflow/internal/logger"
)

// Flusher periodically copies changed counters onto the catalog entries.
// Inline actions (ids containing '#') have no catalog entry and are skipped.
type Flusher struct {
	agg      *Aggregator
	store    catalog.StatsStore
	interval time.Duration
	logger   logger.Logger
}

const defaultFlushInterval = 30 * time.Second

func NewFlusher(agg *Aggregator, store catalog.StatsStore, interval time.Duration, log logger.Logger) *Flusher {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &Flusher{agg: agg, store: store, interval: interval, logger: log}
}

func (f *Flusher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.Flush(ctx)
		case <-ctx.Done():
			f.Flush(context.WithoutCancel(ctx))
			return ctx.Err()
		}
	}
}

func (f *Flusher) Flush(ctx context.Context) {
	rules, actions := f.agg.drainDirty()

	for _, s := range rules {
		if err := f.store.UpdateRuleStats(ctx, s.ID, toStats(s)); err != nil {
			f.logger.WarnwCtx(ctx, "Failed to persist rule stats", "rule_id", s.ID, "error", err)
		}
	}
	for _, s := range actions {
		if strings.Contains(s.ID, "#") {
			continue
		}
		if err := f.store.UpdateActionStats(ctx, s.ID, toStats(s)); err != nil {
			f.logger.WarnwCtx(ctx, "Failed to persist action stats", "action_id", s.ID, "error", err)
		}
	}

	if len(rules)+len(actions) > 0 {
		f.logger.DebugwCtx(ctx, "Flushed execution stats",
			"rules", len(rules),
			"actions", len(actions),
		)
	}
}

func toStats(s Snapshot) catalog.Stats {
	return catalog.Stats{
		ExecutionCount:    s.Executions,
		SuccessCount:      s.Successes,
		SuccessRate:       s.SuccessRate,
		AvgResponseTimeMs: s.AvgResponseTimeMs,
		LastExecutedAt:    s.LastExecutedAt,
	}
}
