package catalog

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ruleflow/internal/constants"
)

// Source produces the full catalog document. Loads are whole-catalog so a
// reload never observes a half-updated set of rules.
type Source interface {
	Name() string
	Load(ctx context.Context) (*Document, error)
}

// StatsStore persists execution counters back onto catalog entries.
type StatsStore interface {
	UpdateRuleStats(ctx context.Context, id string, stats Stats) error
	UpdateActionStats(ctx context.Context, id string, stats Stats) error
}

type MongoRepository struct {
	rules   *mongo.Collection
	actions *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		rules:   db.Collection(constants.CollectionRules),
		actions: db.Collection(constants.CollectionActions),
	}
}

func (r *MongoRepository) Name() string { return constants.CatalogSourceMongo }

func (r *MongoRepository) Load(ctx context.Context) (*Document, error) {
	rules, err := r.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	actions, err := r.ListActions(ctx)
	if err != nil {
		return nil, err
	}
	return &Document{Rules: rules, Actions: actions}, nil
}

// ListRules returns every non-draft rule. Inactive rules are kept so an
// explicit trigger can tell them apart from unknown ids.
func (r *MongoRepository) ListRules(ctx context.Context) ([]Rule, error) {
	filter := bson.M{"status": bson.M{"$ne": StatusDraft}}
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.rules.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer cursor.Close(ctx)

	var rules []Rule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}
	return rules, nil
}

func (r *MongoRepository) ListActions(ctx context.Context) ([]Action, error) {
	cursor, err := r.actions.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer cursor.Close(ctx)

	var actions []Action
	if err := cursor.All(ctx, &actions); err != nil {
		return nil, fmt.Errorf("failed to decode actions: %w", err)
	}
	return actions, nil
}

func (r *MongoRepository) UpdateRuleStats(ctx context.Context, id string, stats Stats) error {
	return updateStats(ctx, r.rules, id, stats)
}

func (r *MongoRepository) UpdateActionStats(ctx context.Context, id string, stats Stats) error {
	return updateStats(ctx, r.actions, id, stats)
}

// updateStats only touches the stats sub-document; a missing entry (deleted
// since the pass ran, or an inline action) is not an error.
func updateStats(ctx context.Context, coll *mongo.Collection, id string, stats Stats) error {
	update := bson.M{"$set": bson.M{
		"stats":            stats,
		"stats_updated_at": time.Now().UTC(),
	}}
	if _, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("failed to update stats for %s: %w", id, err)
	}
	return nil
}
