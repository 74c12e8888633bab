package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ruleflow/internal/constants"
)

// EnsureCatalogIndexes creates the indexes rule selection and the catalog
// API query by. Existing indexes are left alone.
func EnsureCatalogIndexes(ctx context.Context, db *mongo.Database) error {
	if err := createIndexes(ctx, db.Collection(constants.CollectionRules), ruleIndexes()); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if err := createIndexes(ctx, db.Collection(constants.CollectionActions), actionIndexes()); err != nil {
		return fmt.Errorf("actions: %w", err)
	}
	return nil
}

func ruleIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "customer_id", Value: 1}, {Key: "status", Value: 1}, {Key: "priority", Value: 1}},
			Options: options.Index().SetName("idx_rules_customer_status_priority"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "priority", Value: 1}},
			Options: options.Index().SetName("idx_rules_status_priority"),
		},
		{
			Keys:    bson.D{{Key: "event_types", Value: 1}},
			Options: options.Index().SetName("idx_rules_event_types"),
		},
		{
			Keys:    bson.D{{Key: "tags", Value: 1}},
			Options: options.Index().SetName("idx_rules_tags"),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_rules_updated_at"),
		},
	}
}

func actionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "customer_id", Value: 1}, {Key: "type", Value: 1}},
			Options: options.Index().SetName("idx_actions_customer_type"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_actions_status"),
		},
	}
}

func createIndexes(ctx context.Context, coll *mongo.Collection, indexes []mongo.IndexModel) error {
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
