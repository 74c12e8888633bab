package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleAttrs(id string, priority int, tags ...string) map[string]interface{} {
	tagList := make([]interface{}, len(tags))
	for i, t := range tags {
		tagList[i] = t
	}
	return map[string]interface{}{
		"id":          id,
		"name":        "fraud-" + id,
		"customer_id": "acme",
		"priority":    priority,
		"tags":        tagList,
		"event_types": []interface{}{"order.created"},
		"status":      "active",
	}
}

func TestValidateFilterExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{name: "priority comparison", expr: `rule.priority >= 1`},
		{name: "tag membership", expr: `"vip" in rule.tags`},
		{name: "syntax error", expr: `rule.priority >=`, wantError: true},
		{name: "undefined variable", expr: `payload.status == "x"`, wantError: true},
		{name: "non-bool literal", expr: `"hello"`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateFilterExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name  string
		expr  string
		attrs map[string]interface{}
		want  bool
	}{
		{"priority matches", `rule.priority >= 1`, ruleAttrs("r1", 2), true},
		{"priority excluded", `rule.priority >= 1`, ruleAttrs("r1", 0), false},
		{"tag present", `"vip" in rule.tags`, ruleAttrs("r1", 1, "vip", "eu"), true},
		{"tag absent", `"vip" in rule.tags`, ruleAttrs("r1", 1, "eu"), false},
		{"name prefix", `rule.name.startsWith("fraud-")`, ruleAttrs("r9", 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.Match(ctx, tt.expr, tt.attrs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatch_NonBoolResult(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	_, err = eval.Match(context.Background(), `rule.name`, ruleAttrs("r1", 1))
	assert.Error(t, err)
}

func TestFilterExpressionExamples_Compile(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for name, expr := range FilterExpressionExamples {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, eval.ValidateFilterExpression(expr))
			_, err := eval.Match(context.Background(), expr, ruleAttrs("r-1", 3, "vip", "billing.invoice"))
			assert.NoError(t, err)
		})
	}
}
