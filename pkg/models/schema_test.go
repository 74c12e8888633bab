package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTrigger(t *testing.T) {
	tests := []struct {
		name    string
		trigger *Trigger
		field   string
	}{
		{name: "nil", trigger: nil, field: "trigger"},
		{name: "missing id", trigger: &Trigger{Type: TriggerEvent, EventType: "order.created"}, field: "trigger_id"},
		{name: "unknown type", trigger: &Trigger{ID: "t1", Type: "cron", EventType: "x"}, field: "trigger_type"},
		{name: "no selection", trigger: &Trigger{ID: "t1", Type: TriggerRequest}, field: "rule_id"},
		{name: "rule id with event type", trigger: &Trigger{ID: "t1", Type: TriggerRequest, RuleID: "r1", EventType: "x"}, field: "rule_id"},
		{name: "explicit rule", trigger: &Trigger{ID: "t1", Type: TriggerRequest, RuleID: "r1"}},
		{name: "event type and filter", trigger: &Trigger{ID: "t1", Type: TriggerEvent, EventType: "x", Filter: "rule.priority >= 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTrigger(tt.trigger)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestMessageEnvelope_DecodePayload(t *testing.T) {
	env, err := NewMessageEnvelopeBuilder().
		WithID("m1").
		WithType(EnvelopeTypeTrigger).
		WithPayloadOf(Trigger{
			ID:       "t1",
			Type:     TriggerEvent,
			Entities: EntityIDs{OrderID: "o-9"},
			Payload:  map[string]interface{}{"amount": 12.5},
		}).
		WithAttribute("origin", "test").
		Build()
	require.NoError(t, err)
	require.NoError(t, ValidateMessageEnvelope(env))

	var trg Trigger
	require.NoError(t, env.DecodePayload(&trg))
	assert.Equal(t, "t1", trg.ID)
	assert.Equal(t, "o-9", trg.Entities.OrderID)
	assert.Equal(t, 12.5, trg.Payload["amount"])

	origin, ok := env.Attribute("origin")
	assert.True(t, ok)
	assert.Equal(t, "test", origin)
}

func TestMessageEnvelopeBuilder_PayloadError(t *testing.T) {
	_, err := NewMessageEnvelopeBuilder().WithPayloadOf([]string{"not", "an", "object"}).Build()
	assert.Error(t, err)
}
