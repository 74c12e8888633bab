package delivery

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ruleflow/internal/catalog"
	"ruleflow/internal/config"
	"ruleflow/pkg/metrics"
	"ruleflow/pkg/retry"
)

// RecordUpdater applies $set updates to documents of allow-listed
// collections. An empty allow-list permits every collection.
type RecordUpdater struct {
	db      *mongo.Database
	allowed map[string]bool
}

func NewRecordUpdater(db *mongo.Database, cfg config.RecordConfig) *RecordUpdater {
	allowed := make(map[string]bool, len(cfg.AllowedCollections))
	for _, c := range cfg.AllowedCollections {
		allowed[c] = true
	}
	return &RecordUpdater{db: db, allowed: allowed}
}

func (u *RecordUpdater) Type() catalog.ActionType { return catalog.ActionDatabase }

func (u *RecordUpdater) Deliver(ctx context.Context, cfg catalog.ActionConfig) (map[string]interface{}, error) {
	rec, err := configAs[*catalog.DatabaseConfig](cfg)
	if err != nil {
		return nil, err
	}
	if len(u.allowed) > 0 && !u.allowed[rec.Collection] {
		return nil, retry.NewFatalError(fmt.Errorf("collection %q is not writable by actions", rec.Collection))
	}

	filter := recordFilter(rec.Filter)
	update := bson.M{"$set": rec.Set}
	opts := options.Update().SetUpsert(rec.Upsert)

	start := time.Now()
	res, err := u.db.Collection(rec.Collection).UpdateOne(ctx, filter, update, opts)
	metrics.ObserveDatabaseQueryDuration("delivery", "mongodb", "update_record", time.Since(start))
	if err != nil {
		metrics.IncDatabaseQuery("delivery", "mongodb", "update_record", "error")
		return nil, fmt.Errorf("update on %s failed: %w", rec.Collection, err)
	}
	metrics.IncDatabaseQuery("delivery", "mongodb", "update_record", "success")

	result := map[string]interface{}{
		"matched":  res.MatchedCount,
		"modified": res.ModifiedCount,
	}
	if res.UpsertedID != nil {
		result["upserted_id"] = fmt.Sprint(res.UpsertedID)
	}
	return result, nil
}

// recordFilter lets an "_id" given as a hex string also match ObjectID keys,
// since interpolated values are always strings.
func recordFilter(in map[string]interface{}) bson.M {
	filter := bson.M{}
	for k, v := range in {
		filter[k] = v
	}
	if id, ok := filter["_id"].(string); ok {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			filter["_id"] = bson.M{"$in": bson.A{id, oid}}
		}
	}
	return filter
}
