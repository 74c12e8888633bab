package rulecontext

import (
	"context"

	"golang.org/x/sync/errgroup"

	"ruleflow/internal/logger"
	"ruleflow/pkg/errors"
	"ruleflow/pkg/models"
)

// EntityLookup fetches domain entities by id. A missing entity is reported
// with an error for which errors.IsNotFound is true.
type EntityLookup interface {
	GetCustomer(ctx context.Context, id string) (map[string]interface{}, error)
	GetOrder(ctx context.Context, id string) (map[string]interface{}, error)
	GetProduct(ctx context.Context, id string) (map[string]interface{}, error)
}

type Resolver struct {
	entities EntityLookup
	logger   logger.Logger
}

func NewResolver(entities EntityLookup, log logger.Logger) *Resolver {
	return &Resolver{entities: entities, logger: log}
}

// Build assembles the Context for one trigger. Entity lookups run
// concurrently; an entity that is not found, or whose lookup fails, is left
// out of the context so conditions referencing it evaluate to false.
func (r *Resolver) Build(ctx context.Context, trigger *models.Trigger) *Context {
	roots := map[string]interface{}{
		RootTrigger: triggerRoot(trigger),
	}
	if trigger.Payload != nil {
		roots[RootEvent] = trigger.Payload
	}

	if r.entities == nil {
		return New(roots)
	}

	type fetch struct {
		root string
		id   string
		get  func(context.Context, string) (map[string]interface{}, error)
	}
	fetches := []fetch{
		{RootCustomer, trigger.Entities.CustomerID, r.entities.GetCustomer},
		{RootOrder, trigger.Entities.OrderID, r.entities.GetOrder},
		{RootProduct, trigger.Entities.ProductID, r.entities.GetProduct},
	}
	results := make([]map[string]interface{}, len(fetches))

	var g errgroup.Group
	for i, f := range fetches {
		if f.id == "" {
			continue
		}
		g.Go(func() error {
			entity, err := f.get(ctx, f.id)
			if err != nil {
				if !errors.IsNotFound(err) {
					r.logger.WarnwCtx(ctx, "Entity lookup failed, omitting from context",
						"entity", f.root,
						"entity_id", f.id,
						"error", err,
					)
				}
				return nil
			}
			results[i] = entity
			return nil
		})
	}
	_ = g.Wait()

	for i, f := range fetches {
		if results[i] != nil {
			roots[f.root] = results[i]
		}
	}
	return New(roots)
}

func triggerRoot(t *models.Trigger) map[string]interface{} {
	root := map[string]interface{}{
		"id":   t.ID,
		"type": string(t.Type),
	}
	if t.EventType != "" {
		root["event_type"] = t.EventType
	}
	if t.CustomerID != "" {
		root["customer_id"] = t.CustomerID
	}
	if !t.ReceivedAt.IsZero() {
		root["received_at"] = t.ReceivedAt
	}
	return root
}
