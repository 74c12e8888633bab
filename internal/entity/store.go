// Package entity fetches the customers, orders and products a trigger refers
// to, with a Redis read-through cache and a circuit breaker in front of the
// document store.
package entity

import (
	"context"

	"ruleflow/internal/constants"
)

type Kind string

const (
	KindCustomer Kind = "customer"
	KindOrder    Kind = "order"
	KindProduct  Kind = "product"
)

// Collection returns the MongoDB collection holding entities of kind k.
func (k Kind) Collection() string {
	switch k {
	case KindCustomer:
		return constants.CollectionCustomers
	case KindOrder:
		return constants.CollectionOrders
	case KindProduct:
		return constants.CollectionProducts
	}
	return ""
}

// KindForCollection is the inverse of Kind.Collection.
func KindForCollection(collection string) (Kind, bool) {
	for _, k := range []Kind{KindCustomer, KindOrder, KindProduct} {
		if k.Collection() == collection {
			return k, true
		}
	}
	return "", false
}

// Store fetches one entity. Implementations return an error for which
// errors.IsNotFound is true when the entity does not exist.
type Store interface {
	Fetch(ctx context.Context, kind Kind, id string) (map[string]interface{}, error)
}

// Lookup adapts a Store to the per-root lookup methods the context resolver
// consumes.
type Lookup struct {
	store Store
}

func NewLookup(store Store) *Lookup {
	return &Lookup{store: store}
}

func (l *Lookup) GetCustomer(ctx context.Context, id string) (map[string]interface{}, error) {
	return l.store.Fetch(ctx, KindCustomer, id)
}

func (l *Lookup) GetOrder(ctx context.Context, id string) (map[string]interface{}, error) {
	return l.store.Fetch(ctx, KindOrder, id)
}

func (l *Lookup) GetProduct(ctx context.Context, id string) (map[string]interface{}, error) {
	return l.store.Fetch(ctx, KindProduct, id)
}
