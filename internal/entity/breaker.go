package entity

import (
	"context"
	"fmt"

	"ruleflow/pkg/circuitbreaker"
	"ruleflow/pkg/errors"
)

// BreakerStore trips after repeated store failures. Not-found answers are
// healthy responses and never count against the breaker.
type BreakerStore struct {
	next Store
	cb   *circuitbreaker.Wrapper
	name string
}

func NewBreakerStore(next Store, cfg circuitbreaker.Config) *BreakerStore {
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.IsNotFound(err)
	}
	return &BreakerStore{
		next: next,
		cb:   circuitbreaker.NewWrapper(cfg),
		name: cfg.Name,
	}
}

func (s *BreakerStore) Fetch(ctx context.Context, kind Kind, id string) (map[string]interface{}, error) {
	entity, err := circuitbreaker.Do(ctx, s.cb, func() (map[string]interface{}, error) {
		return s.next.Fetch(ctx, kind, id)
	})
	if err != nil {
		if circuitbreaker.IsBreakerError(err) {
			return nil, errors.ErrServiceUnavailable.WithCause(fmt.Errorf("circuit breaker is open for %s: %w", s.name, err))
		}
		return nil, err
	}
	return entity, nil
}

func (s *BreakerStore) State() string {
	return s.cb.State().String()
}
