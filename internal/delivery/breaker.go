package delivery

import (
	"context"
	"errors"

	"ruleflow/internal/catalog"
	"ruleflow/pkg/circuitbreaker"
	"ruleflow/pkg/retry"
)

// WithBreaker guards next with a circuit breaker. Fatal errors (bad config,
// 4xx answers) say nothing about the downstream's health and do not count
// as failures.
func WithBreaker(next Capability, cfg circuitbreaker.Config) Capability {
	cfg.IsSuccessful = func(err error) bool {
		if err == nil {
			return true
		}
		var fatal retry.FatalError
		return errors.As(err, &fatal) && fatal.IsFatal()
	}
	return &breakerCapability{next: next, cb: circuitbreaker.NewWrapper(cfg)}
}

type breakerCapability struct {
	next Capability
	cb   *circuitbreaker.Wrapper
}

func (b *breakerCapability) Type() catalog.ActionType { return b.next.Type() }

func (b *breakerCapability) Deliver(ctx context.Context, cfg catalog.ActionConfig) (map[string]interface{}, error) {
	return circuitbreaker.Do(ctx, b.cb, func() (map[string]interface{}, error) {
		return b.next.Deliver(ctx, cfg)
	})
}
