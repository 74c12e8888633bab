// Package delivery implements the external capabilities actions are
// dispatched to: email over SMTP, SMS and webhooks over HTTP, record
// mutation in MongoDB and notifications over Redis pub/sub or Kafka.
package delivery

import (
	"context"
	"fmt"
	"sync"

	"ruleflow/internal/catalog"
	"ruleflow/pkg/retry"
)

// Capability delivers one fully interpolated action configuration. The
// returned map is recorded as the action's result payload.
type Capability interface {
	Type() catalog.ActionType
	Deliver(ctx context.Context, cfg catalog.ActionConfig) (map[string]interface{}, error)
}

type Registry struct {
	mu   sync.RWMutex
	caps map[catalog.ActionType]Capability
}

func NewRegistry(caps ...Capability) *Registry {
	r := &Registry{caps: make(map[catalog.ActionType]Capability)}
	for _, c := range caps {
		r.Register(c)
	}
	return r
}

func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[c.Type()] = c
}

func (r *Registry) Lookup(t catalog.ActionType) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[t]
	return c, ok
}

func (r *Registry) Types() []catalog.ActionType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]catalog.ActionType, 0, len(r.caps))
	for t := range r.caps {
		out = append(out, t)
	}
	return out
}

// configAs asserts the configuration variant a capability expects. A
// mismatch is a wiring bug, reported as fatal so it is never retried.
func configAs[T catalog.ActionConfig](cfg catalog.ActionConfig) (T, error) {
	typed, ok := cfg.(T)
	if !ok {
		var zero T
		return zero, retry.NewFatalError(fmt.Errorf("unexpected config type %T", cfg))
	}
	return typed, nil
}
