package entity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ruleflow/pkg/circuitbreaker"
	"ruleflow/pkg/errors"
	"ruleflow/pkg/models"
)

type stubStore struct {
	calls    int
	entities map[string]map[string]interface{}
	err      error
}

func (s *stubStore) Fetch(_ context.Context, kind Kind, id string) (map[string]interface{}, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if e, ok := s.entities[string(kind)+"/"+id]; ok {
		return e, nil
	}
	return nil, errors.ErrNotFound
}

func TestLookup_RoutesByKind(t *testing.T) {
	store := &stubStore{entities: map[string]map[string]interface{}{
		"customer/c1": {"tier": "gold"},
		"order/o1":    {"total": 10.0},
		"product/p1":  {"sku": "X"},
	}}
	l := NewLookup(store)
	ctx := context.Background()

	c, err := l.GetCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "gold", c["tier"])

	o, err := l.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, o["total"])

	p, err := l.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "X", p["sku"])

	_, err = l.GetOrder(ctx, "c1")
	assert.True(t, errors.IsNotFound(err))
}

func TestBreakerStore_NotFoundDoesNotTrip(t *testing.T) {
	store := &stubStore{}
	cfg := circuitbreaker.DefaultConfig("entity-test-notfound")
	b := NewBreakerStore(store, cfg)

	for i := 0; i < 10; i++ {
		_, err := b.Fetch(context.Background(), KindOrder, "missing")
		assert.True(t, errors.IsNotFound(err))
	}
	assert.Equal(t, "closed", b.State())
}

func TestBreakerStore_OpensOnFailures(t *testing.T) {
	store := &stubStore{err: fmt.Errorf("connection refused")}
	b := NewBreakerStore(store, circuitbreaker.DefaultConfig("entity-test-open"))

	for i := 0; i < 3; i++ {
		_, err := b.Fetch(context.Background(), KindOrder, "o1")
		require.Error(t, err)
	}
	assert.Equal(t, "open", b.State())

	_, err := b.Fetch(context.Background(), KindOrder, "o1")
	assert.Equal(t, errors.ErrServiceUnavailable.Code, errors.CodeOf(err))
	assert.Equal(t, 3, store.calls, "an open breaker must not reach the store")
}

func TestNormalizeDocument(t *testing.T) {
	oid := primitive.NewObjectID()
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	dec, err := primitive.ParseDecimal128("19.99")
	require.NoError(t, err)

	doc := normalizeDocument(bson.M{
		"_id":      oid,
		"placed":   primitive.NewDateTimeFromTime(ts),
		"price":    dec,
		"qty":      int32(3),
		"shipping": bson.D{{Key: "country", Value: "NL"}},
		"tags":     bson.A{"a", bson.M{"k": int64(1)}},
	})

	assert.Equal(t, oid.Hex(), doc["_id"])
	assert.Equal(t, oid.Hex(), doc["id"])
	assert.Equal(t, ts, doc["placed"])
	assert.Equal(t, 19.99, doc["price"])
	assert.Equal(t, 3.0, doc["qty"])
	assert.Equal(t, map[string]interface{}{"country": "NL"}, doc["shipping"])
	assert.Equal(t, []interface{}{"a", map[string]interface{}{"k": 1.0}}, doc["tags"])
}

func TestTriggerFromChange(t *testing.T) {
	trigger, ok := TriggerFromChange("orders", "insert",
		bson.M{"_id": "o-42"},
		bson.M{"_id": "o-42", "customer_id": "c-7", "total": int32(1500)},
	)
	require.True(t, ok)
	assert.Equal(t, models.TriggerStorageChange, trigger.Type)
	assert.Equal(t, "order.insert", trigger.EventType)
	assert.Equal(t, models.EntityIDs{CustomerID: "c-7", OrderID: "o-42"}, trigger.Entities)
	assert.NotEmpty(t, trigger.ID)
	require.NoError(t, models.ValidateTrigger(trigger))

	doc := trigger.Payload["document"].(map[string]interface{})
	assert.Equal(t, 1500.0, doc["total"])

	_, ok = TriggerFromChange("audit_logs", "insert", bson.M{"_id": "x"}, nil)
	assert.False(t, ok)

	_, ok = TriggerFromChange("orders", "insert", bson.M{}, nil)
	assert.False(t, ok)
}

func TestKindForCollection(t *testing.T) {
	for _, k := range []Kind{KindCustomer, KindOrder, KindProduct} {
		got, ok := KindForCollection(k.Collection())
		require.True(t, ok)
		assert.Equal(t, k, got)
	}
}
