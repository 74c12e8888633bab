package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ruleflow/pkg/errors"
	"ruleflow/pkg/models"
)

func selectorCatalog() *Document {
	inactive := rule("inactive", 1, alwaysTrue)
	inactive.Status = StatusInactive

	other := rule("other-customer", 1, alwaysTrue)
	other.CustomerID = "c2"

	tagged := rule("tagged", 5, alwaysTrue)
	tagged.EventTypes = nil
	tagged.Tags = []string{"vip", "order.created"}

	wildcard := rule("wildcard", 9, alwaysTrue)
	wildcard.EventTypes = []string{"*"}

	signup := rule("signup", 0, alwaysTrue)
	signup.EventTypes = []string{"customer.signup"}

	return &Document{Rules: []Rule{
		rule("r3", 3, alwaysTrue),
		rule("r1", 1, alwaysTrue),
		rule("r2", 2, alwaysTrue),
		inactive, other, tagged, wildcard, signup,
	}}
}

func ids(rules []*CompiledRule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.ID)
	}
	return out
}

func TestSelect_ByID(t *testing.T) {
	svc := newTestService(t, selectorCatalog())
	ctx := context.Background()

	got, err := svc.Select(ctx, &models.Trigger{RuleID: "r2", CustomerID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, ids(got))

	_, err = svc.Select(ctx, &models.Trigger{RuleID: "nope", CustomerID: "c1"})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Select(ctx, &models.Trigger{RuleID: "inactive", CustomerID: "c1"})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Select(ctx, &models.Trigger{RuleID: "other-customer", CustomerID: "c1"})
	assert.True(t, apperrors.IsForbidden(err))

	got, err = svc.Select(ctx, &models.Trigger{RuleID: "other-customer"})
	require.NoError(t, err)
	assert.Equal(t, []string{"other-customer"}, ids(got))
}

func TestSelect_ByEventType(t *testing.T) {
	svc := newTestService(t, selectorCatalog())

	got, err := svc.Select(context.Background(), &models.Trigger{EventType: "order.created", CustomerID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3", "tagged", "wildcard"}, ids(got))

	got, err = svc.Select(context.Background(), &models.Trigger{EventType: "customer.signup", CustomerID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"signup", "wildcard"}, ids(got))

	got, err = svc.Select(context.Background(), &models.Trigger{EventType: "order.created", CustomerID: "c3"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelect_ByFilter(t *testing.T) {
	svc := newTestService(t, selectorCatalog())

	got, err := svc.Select(context.Background(), &models.Trigger{
		CustomerID: "c1",
		Filter:     `"vip" in rule.tags`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"tagged"}, ids(got))

	got, err = svc.Select(context.Background(), &models.Trigger{
		CustomerID: "c1",
		EventType:  "order.created",
		Filter:     `rule.id.startsWith("r")`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3"}, ids(got))
}

func TestSelect_InvalidFilter(t *testing.T) {
	svc := newTestService(t, selectorCatalog())

	_, err := svc.Select(context.Background(), &models.Trigger{CustomerID: "c1", Filter: `rule.id ==`})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadTrigger.Code, apperrors.CodeOf(err))
}
