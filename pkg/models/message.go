package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope types carried on the broker.
const (
	EnvelopeTypeTrigger         = "trigger"
	EnvelopeTypeExecutionRecord = "execution_record"
	EnvelopeTypeNotification    = "notification"
	EnvelopeTypeConfigUpdate    = "config_update"
)

type MessageEnvelope struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
	Metadata  Metadata               `json:"metadata"`
}

type Metadata struct {
	TraceID    string                 `json:"trace_id,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// DecodePayload converts the generic payload into v.
func (msg *MessageEnvelope) DecodePayload(v interface{}) error {
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", msg.Type, err)
	}
	return nil
}

func (msg *MessageEnvelope) SetAttribute(key string, value interface{}) {
	if msg.Metadata.Attributes == nil {
		msg.Metadata.Attributes = make(map[string]interface{})
	}
	msg.Metadata.Attributes[key] = value
}

func (msg *MessageEnvelope) Attribute(key string) (string, bool) {
	v, ok := msg.Metadata.Attributes[key].(string)
	return v, ok
}

// ToPayload converts a struct into the generic payload form used by
// MessageEnvelope.
func ToPayload(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	return out, nil
}
