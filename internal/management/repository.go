package management

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ruleflow/internal/catalog"
	"ruleflow/internal/constants"
	apperrors "ruleflow/pkg/errors"
	"ruleflow/pkg/metrics"
)

// Repository stores catalog entries. Get methods return an ErrNotFound
// application error for unknown ids.
type Repository interface {
	CreateRule(ctx context.Context, rule *catalog.Rule) error
	GetRule(ctx context.Context, id string) (*catalog.Rule, error)
	ListRules(ctx context.Context, q RuleQuery) ([]catalog.Rule, error)
	UpdateRule(ctx context.Context, rule *catalog.Rule) error

	CreateAction(ctx context.Context, action *catalog.Action) error
	GetAction(ctx context.Context, id string) (*catalog.Action, error)
	ListActions(ctx context.Context, q ActionQuery) ([]catalog.Action, error)
	UpdateAction(ctx context.Context, action *catalog.Action) error
}

type MongoRepository struct {
	rules   *mongo.Collection
	actions *mongo.Collection
}

func NewRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		rules:   db.Collection(constants.CollectionRules),
		actions: db.Collection(constants.CollectionActions),
	}
}

func (r *MongoRepository) CreateRule(ctx context.Context, rule *catalog.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	return observe(ctx, "insert_rule", func() error {
		if _, err := r.rules.InsertOne(ctx, rule); err != nil {
			return insertError(err, EntityRule, rule.ID)
		}
		return nil
	})
}

func (r *MongoRepository) GetRule(ctx context.Context, id string) (*catalog.Rule, error) {
	var rule catalog.Rule
	err := observe(ctx, "find_rule", func() error {
		return r.rules.FindOne(ctx, bson.M{"_id": id}).Decode(&rule)
	})
	if err != nil {
		return nil, findError(err, EntityRule, id)
	}
	return &rule, nil
}

func (r *MongoRepository) ListRules(ctx context.Context, q RuleQuery) ([]catalog.Rule, error) {
	filter := bson.M{}
	if q.CustomerID != "" {
		filter["customer_id"] = q.CustomerID
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.EventType != "" {
		filter["event_types"] = q.EventType
	}
	if q.Tag != "" {
		filter["tags"] = q.Tag
	}
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "_id", Value: 1}})

	rules := []catalog.Rule{}
	err := observe(ctx, "list_rules", func() error {
		cursor, err := r.rules.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		return cursor.All(ctx, &rules)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return rules, nil
}

// UpdateRule replaces the stored document but keeps its stats, which the
// engines own.
func (r *MongoRepository) UpdateRule(ctx context.Context, rule *catalog.Rule) error {
	rule.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":        rule.Name,
		"description": rule.Description,
		"priority":    rule.Priority,
		"status":      rule.Status,
		"event_types": rule.EventTypes,
		"tags":        rule.Tags,
		"condition":   rule.Condition,
		"action_ids":  rule.ActionIDs,
		"updated_at":  rule.UpdatedAt,
	}
	return r.update(ctx, r.rules, "update_rule", EntityRule, rule.ID, set)
}

func (r *MongoRepository) CreateAction(ctx context.Context, action *catalog.Action) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	action.CreatedAt = now
	action.UpdatedAt = now

	return observe(ctx, "insert_action", func() error {
		if _, err := r.actions.InsertOne(ctx, action); err != nil {
			return insertError(err, EntityAction, action.ID)
		}
		return nil
	})
}

func (r *MongoRepository) GetAction(ctx context.Context, id string) (*catalog.Action, error) {
	var action catalog.Action
	err := observe(ctx, "find_action", func() error {
		return r.actions.FindOne(ctx, bson.M{"_id": id}).Decode(&action)
	})
	if err != nil {
		return nil, findError(err, EntityAction, id)
	}
	return &action, nil
}

func (r *MongoRepository) ListActions(ctx context.Context, q ActionQuery) ([]catalog.Action, error) {
	filter := bson.M{}
	if q.CustomerID != "" {
		filter["customer_id"] = q.CustomerID
	}
	if q.Type != "" {
		filter["type"] = q.Type
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	actions := []catalog.Action{}
	err := observe(ctx, "list_actions", func() error {
		cursor, err := r.actions.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		return cursor.All(ctx, &actions)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	return actions, nil
}

func (r *MongoRepository) UpdateAction(ctx context.Context, action *catalog.Action) error {
	action.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":       action.Name,
		"status":     action.Status,
		"config":     action.Config,
		"updated_at": action.UpdatedAt,
	}
	return r.update(ctx, r.actions, "update_action", EntityAction, action.ID, set)
}

func (r *MongoRepository) update(ctx context.Context, coll *mongo.Collection, operation, entity, id string, set bson.M) error {
	var matched int64
	err := observe(ctx, operation, func() error {
		res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", entity, id, err)
	}
	if matched == 0 {
		return notFound(entity, id)
	}
	return nil
}

func observe(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := "success"
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		status = "error"
	}
	metrics.IncDatabaseQuery(constants.ServiceNameCatalog, constants.CatalogSourceMongo, operation, status)
	metrics.ObserveDatabaseQueryDuration(constants.ServiceNameCatalog, constants.CatalogSourceMongo, operation, time.Since(start))
	return err
}

func notFound(entity, id string) error {
	return apperrors.ErrNotFound.
		WithDetail("message", fmt.Sprintf("%s %q not found", entity, id)).
		WithDetail("id", id)
}

func findError(err error, entity, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound(entity, id)
	}
	return fmt.Errorf("failed to get %s %s: %w", entity, id, err)
}

func insertError(err error, entity, id string) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.ErrConflict.
			WithCause(err).
			WithDetail("message", fmt.Sprintf("%s %q already exists", entity, id))
	}
	return fmt.Errorf("failed to create %s: %w", entity, err)
}
