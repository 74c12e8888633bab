package entity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ruleflow/internal/logger"
	"ruleflow/pkg/models"
)

// TriggerFunc receives the storage_change triggers a Watcher produces.
type TriggerFunc func(ctx context.Context, trigger *models.Trigger) error

// Invalidator drops cached copies of changed entities.
type Invalidator interface {
	Invalidate(ctx context.Context, kind Kind, id string) error
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	Namespace     struct {
		Collection string `bson:"coll"`
	} `bson:"ns"`
	DocumentKey  bson.M `bson:"documentKey"`
	FullDocument bson.M `bson:"fullDocument"`
}

// Watcher turns MongoDB change stream events on the entity collections into
// storage_change triggers with event type "<kind>.<operation>", for example
// "order.insert".
type Watcher struct {
	db          *mongo.Database
	invalidator Invalidator
	logger      logger.Logger
}

func NewWatcher(db *mongo.Database, invalidator Invalidator, log logger.Logger) *Watcher {
	return &Watcher{db: db, invalidator: invalidator, logger: log}
}

// Run blocks until ctx is done, reopening the change stream after errors.
func (w *Watcher) Run(ctx context.Context, handle TriggerFunc) error {
	for {
		err := w.watch(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		w.logger.ErrorwCtx(ctx, "Entity change stream stopped, reopening", "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

func (w *Watcher) watch(ctx context.Context, handle TriggerFunc) error {
	collections := bson.A{}
	for _, k := range []Kind{KindCustomer, KindOrder, KindProduct} {
		collections = append(collections, k.Collection())
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"ns.coll":       bson.M{"$in": collections},
			"operationType": bson.M{"$in": bson.A{"insert", "update", "replace"}},
		}}},
	}

	stream, err := w.db.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return fmt.Errorf("failed to open change stream: %w", err)
	}
	defer stream.Close(context.WithoutCancel(ctx))

	w.logger.InfowCtx(ctx, "Watching entity collections for changes")

	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			w.logger.WarnwCtx(ctx, "Failed to decode change event", "error", err)
			continue
		}

		trigger, ok := TriggerFromChange(ev.Namespace.Collection, ev.OperationType, ev.DocumentKey, ev.FullDocument)
		if !ok {
			continue
		}

		if w.invalidator != nil {
			kind, _ := KindForCollection(ev.Namespace.Collection)
			id := entityID(trigger.Entities, kind)
			if err := w.invalidator.Invalidate(ctx, kind, id); err != nil {
				w.logger.WarnwCtx(ctx, "Failed to invalidate cached entity", "kind", kind, "id", id, "error", err)
			}
		}

		if err := handle(ctx, trigger); err != nil {
			w.logger.ErrorwCtx(ctx, "Storage change trigger failed",
				"trigger_id", trigger.ID,
				"event_type", trigger.EventType,
				"error", err,
			)
		}
	}
	return stream.Err()
}

// TriggerFromChange builds the trigger for one change event. The changed
// entity's id comes from the document key; related ids (customer_id,
// product_id) are taken from the full document when present.
func TriggerFromChange(collection, operation string, documentKey, fullDocument bson.M) (*models.Trigger, bool) {
	kind, ok := KindForCollection(collection)
	if !ok {
		return nil, false
	}

	id, ok := normalizeValue(documentKey["_id"]).(string)
	if !ok || id == "" {
		return nil, false
	}

	doc := map[string]interface{}{}
	if fullDocument != nil {
		doc = normalizeDocument(fullDocument)
	}

	var ids models.EntityIDs
	if v, ok := doc["customer_id"].(string); ok {
		ids.CustomerID = v
	}
	if v, ok := doc["product_id"].(string); ok {
		ids.ProductID = v
	}
	switch kind {
	case KindCustomer:
		ids.CustomerID = id
	case KindOrder:
		ids.OrderID = id
	case KindProduct:
		ids.ProductID = id
	}

	return &models.Trigger{
		ID:         uuid.New().String(),
		Type:       models.TriggerStorageChange,
		EventType:  string(kind) + "." + operation,
		Entities:   ids,
		Payload:    map[string]interface{}{"operation": operation, "collection": collection, "document": doc},
		ReceivedAt: time.Now().UTC(),
	}, true
}

func entityID(ids models.EntityIDs, kind Kind) string {
	switch kind {
	case KindCustomer:
		return ids.CustomerID
	case KindOrder:
		return ids.OrderID
	case KindProduct:
		return ids.ProductID
	}
	return ""
}
