package entity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ruleflow/pkg/errors"
	"ruleflow/pkg/metrics"
)

type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// Fetch looks the entity up by _id. Ids that are valid ObjectID hex strings
// match either representation.
func (s *MongoStore) Fetch(ctx context.Context, kind Kind, id string) (map[string]interface{}, error) {
	collection := kind.Collection()
	if collection == "" {
		return nil, errors.ErrValidation.WithDetail("message", fmt.Sprintf("unknown entity kind %q", kind))
	}

	var filter bson.M
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		filter = bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	} else {
		filter = bson.M{"_id": id}
	}

	start := time.Now()
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, filter).Decode(&doc)
	metrics.ObserveDatabaseQueryDuration("engine", "mongodb", "find_"+string(kind), time.Since(start))
	if err == mongo.ErrNoDocuments {
		metrics.IncDatabaseQuery("engine", "mongodb", "find_"+string(kind), "not_found")
		return nil, errors.ErrNotFound.WithDetail("message", fmt.Sprintf("%s %s not found", kind, id))
	}
	if err != nil {
		metrics.IncDatabaseQuery("engine", "mongodb", "find_"+string(kind), "error")
		return nil, fmt.Errorf("failed to fetch %s %s: %w", kind, id, err)
	}
	metrics.IncDatabaseQuery("engine", "mongodb", "find_"+string(kind), "success")

	return normalizeDocument(doc), nil
}

// normalizeDocument converts BSON-specific types into plain JSON-compatible
// values so that entities read from the store and from the cache compare the
// same way.
func normalizeDocument(doc bson.M) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if k == "_id" {
			out["id"] = normalizeValue(v)
		}
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		return normalizeDocument(t)
	case bson.D:
		m := make(bson.M, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return normalizeDocument(m)
	case bson.A:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Decimal128:
		f, err := decimalToFloat(t)
		if err != nil {
			return t.String()
		}
		return f
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	}
	return v
}

func decimalToFloat(d primitive.Decimal128) (float64, error) {
	return strconv.ParseFloat(d.String(), 64)
}
