//go:build integration

package management

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"ruleflow/internal/catalog"
	"ruleflow/internal/constants"
	"ruleflow/internal/logger"
	"ruleflow/internal/testinfra"
	"ruleflow/pkg/errors"
	"ruleflow/pkg/migrations"
)

func TestMongoRepository_Rules(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Mongo: true})
	ctx := context.Background()
	require.NoError(t, migrations.EnsureCatalogIndexes(ctx, infra.MongoDB))

	repo := NewRepository(infra.MongoDB)

	rule := &catalog.Rule{
		CustomerID: "acme",
		Name:       "large orders",
		Priority:   2,
		Status:     catalog.StatusActive,
		EventTypes: []string{"order.created"},
		Tags:       []string{"vip"},
		Condition:  validCondition,
	}
	require.NoError(t, repo.CreateRule(ctx, rule))
	assert.NotEmpty(t, rule.ID)
	assert.False(t, rule.CreatedAt.IsZero())

	err := repo.CreateRule(ctx, &catalog.Rule{ID: rule.ID, CustomerID: "acme", Name: "dup", Condition: validCondition})
	assert.True(t, errors.IsConflict(err))

	_, err = infra.MongoDB.Collection(constants.CollectionRules).UpdateOne(ctx,
		bson.M{"_id": rule.ID}, bson.M{"$set": bson.M{"stats.execution_count": 7}})
	require.NoError(t, err)

	rule.Priority = 5
	require.NoError(t, repo.UpdateRule(ctx, rule))

	got, err := repo.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Priority)
	assert.Equal(t, int64(7), got.Stats.ExecutionCount, "stats are owned by the engines")

	listed, err := repo.ListRules(ctx, RuleQuery{CustomerID: "acme", Tag: "vip"})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	listed, err = repo.ListRules(ctx, RuleQuery{EventType: "order.cancelled"})
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = repo.GetRule(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))

	err = repo.UpdateRule(ctx, &catalog.Rule{ID: "missing"})
	assert.True(t, errors.IsNotFound(err))
}

func TestMongoRepository_Actions(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Mongo: true})
	ctx := context.Background()
	repo := NewRepository(infra.MongoDB)

	action := &catalog.Action{
		ID:         "hook",
		CustomerID: "acme",
		Name:       "crm",
		Type:       catalog.ActionWebhook,
		Status:     catalog.StatusActive,
		Config:     map[string]interface{}{"url": "https://crm.example.com"},
	}
	require.NoError(t, repo.CreateAction(ctx, action))

	action.Status = catalog.StatusInactive
	require.NoError(t, repo.UpdateAction(ctx, action))

	got, err := repo.GetAction(ctx, "hook")
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusInactive, got.Status)
	assert.Equal(t, "https://crm.example.com", got.Config["url"])

	listed, err := repo.ListActions(ctx, ActionQuery{Type: catalog.ActionEmail})
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestPostgresVersionsAndAudit(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Postgres: true})
	ctx := context.Background()

	versions := NewVersionStore(infra.PostgresDB)
	for i := 0; i < 3; i++ {
		v, err := versions.SaveVersion(ctx, EntityRule, "r1", "alice", map[string]interface{}{"priority": i})
		require.NoError(t, err)
		assert.Equal(t, i+1, v.Version)
	}

	list, err := versions.Versions(ctx, EntityRule, "r1")
	require.NoError(t, err)
	require.Len(t, list, 3)

	v2, err := versions.Version(ctx, EntityRule, "r1", 2)
	require.NoError(t, err)
	require.NotNil(t, v2)
	assert.Equal(t, float64(1), v2.Data["priority"])
	assert.Equal(t, "alice", v2.ChangedBy)

	missing, err := versions.Version(ctx, EntityRule, "r1", 9)
	require.NoError(t, err)
	assert.Nil(t, missing)

	audit := NewAuditLogger(infra.PostgresDB)
	require.NoError(t, audit.Log(ctx, AuditEntry{EntityType: EntityRule, EntityID: "r1", Operation: "create", After: map[string]interface{}{"name": "x"}}))
	require.NoError(t, audit.Log(ctx, AuditEntry{EntityType: EntityAction, EntityID: "a1", Operation: "delete"}))

	logs, err := audit.List(ctx, EntityRule, "", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "create", logs[0].Operation)
	assert.Contains(t, logs[0].Changes, "after")

	logs, err = audit.List(ctx, "", "", 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestService_EndToEndOnStores(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Mongo: true, Postgres: true})
	ctx := WithChangedBy(context.Background(), "carol")

	svc := NewService(NewRepository(infra.MongoDB), logger.NopLogger(),
		WithVersioning(NewVersionStore(infra.PostgresDB)),
		WithAudit(NewAuditLogger(infra.PostgresDB)),
	)

	rule, err := svc.CreateRule(ctx, validRule())
	require.NoError(t, err)

	priority := 4
	_, err = svc.UpdateRule(ctx, rule.ID, UpdateRuleRequest{Priority: &priority})
	require.NoError(t, err)

	versions, err := svc.GetVersions(ctx, EntityRule, rule.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "carol", versions[1].ChangedBy)

	logs, err := svc.GetAuditLogs(ctx, EntityRule, rule.ID, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}
