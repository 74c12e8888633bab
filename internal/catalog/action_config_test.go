package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ruleflow/pkg/errors"
)

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(ActionEmail, map[string]interface{}{
		"to":      "ops@acme.io, sales@acme.io",
		"cc":      "audit@acme.io",
		"subject": "Order {order.id}",
	})
	require.NoError(t, err)

	email, ok := cfg.(*EmailConfig)
	require.True(t, ok)
	assert.Equal(t, ActionEmail, email.Type())
	assert.Equal(t, []string{"ops@acme.io", "sales@acme.io", "audit@acme.io"}, email.Recipients())
}

func TestDecodeConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		typ  ActionType
		raw  map[string]interface{}
	}{
		{"unknown type", ActionType("fax"), map[string]interface{}{}},
		{"unknown field", ActionSMS, map[string]interface{}{"to": "+100", "message": "hi", "priority": "high"}},
		{"missing recipient", ActionEmail, map[string]interface{}{"subject": "x"}},
		{"webhook scheme", ActionWebhook, map[string]interface{}{"url": "ftp://example.com"}},
		{"webhook method", ActionWebhook, map[string]interface{}{"url": "https://example.com", "method": "TRACE"}},
		{"database operator", ActionDatabase, map[string]interface{}{
			"collection": "orders",
			"filter":     map[string]interface{}{"_id": "1"},
			"set":        map[string]interface{}{"$where": "1"},
		}},
		{"database empty filter", ActionDatabase, map[string]interface{}{
			"collection": "orders",
			"set":        map[string]interface{}{"status": "flagged"},
		}},
		{"notification level", ActionNotification, map[string]interface{}{"message": "x", "level": "loud"}},
		{"wrong field type", ActionSMS, map[string]interface{}{"to": 5, "message": "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeConfig(tt.typ, tt.raw)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestInterpolate_DoesNotModifyReceiver(t *testing.T) {
	orig := &WebhookConfig{
		URL:     "https://hooks.acme.io/{customer.id}",
		Headers: map[string]string{"X-Tier": "{customer.tier}"},
		Body:    `{"total": "{order.total}"}`,
	}
	upper := func(s string) string { return strings.ToUpper(s) }

	out := orig.Interpolate(upper).(*WebhookConfig)
	assert.Equal(t, "HTTPS://HOOKS.ACME.IO/{CUSTOMER.ID}", out.URL)
	assert.Equal(t, "{CUSTOMER.TIER}", out.Headers["X-Tier"])
	assert.Equal(t, "https://hooks.acme.io/{customer.id}", orig.URL)
	assert.Equal(t, "{customer.tier}", orig.Headers["X-Tier"])
	assert.Equal(t, "POST", out.HTTPMethod())
}

func TestInterpolate_DatabaseNestedValues(t *testing.T) {
	cfg := &DatabaseConfig{
		Collection: "orders",
		Filter:     map[string]interface{}{"_id": "{order.id}"},
		Set: map[string]interface{}{
			"flags":  []interface{}{"{event.reason}", 3.0},
			"review": map[string]interface{}{"by": "{customer.id}"},
			"count":  2.0,
		},
	}
	expand := func(s string) string { return strings.Trim(s, "{}") }

	out := cfg.Interpolate(expand).(*DatabaseConfig)
	assert.Equal(t, "order.id", out.Filter["_id"])
	assert.Equal(t, []interface{}{"event.reason", 3.0}, out.Set["flags"])
	assert.Equal(t, map[string]interface{}{"by": "customer.id"}, out.Set["review"])
	assert.Equal(t, 2.0, out.Set["count"])
	assert.Equal(t, "{order.id}", cfg.Filter["_id"])
}

func TestEncodeConfig_RoundTripsThroughDecode(t *testing.T) {
	in := &NotificationConfig{Channel: "ops", Message: "hello", Level: "warning"}
	raw, err := EncodeConfig(in)
	require.NoError(t, err)

	out, err := DecodeConfig(ActionNotification, raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
