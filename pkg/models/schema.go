package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateMessageEnvelope(msg *MessageEnvelope) error {
	if msg == nil {
		return &ValidationError{
			Field:   "envelope",
			Message: "message envelope cannot be nil",
		}
	}

	if msg.ID == "" {
		return &ValidationError{
			Field:   "id",
			Message: "message ID is required",
		}
	}

	if msg.Timestamp.IsZero() {
		return &ValidationError{
			Field:   "timestamp",
			Message: "message timestamp is required",
		}
	}

	if msg.Payload == nil {
		return &ValidationError{
			Field:   "payload",
			Message: "message payload cannot be nil",
		}
	}

	return nil
}

func ValidateTrigger(t *Trigger) error {
	if t == nil {
		return &ValidationError{
			Field:   "trigger",
			Message: "trigger cannot be nil",
		}
	}

	if t.ID == "" {
		return &ValidationError{
			Field:   "trigger_id",
			Message: "trigger ID is required",
		}
	}

	if !t.Type.Valid() {
		return &ValidationError{
			Field:   "trigger_type",
			Message: fmt.Sprintf("unknown trigger type %q", t.Type),
		}
	}

	if t.RuleID == "" && t.EventType == "" && t.Filter == "" {
		return &ValidationError{
			Field:   "rule_id",
			Message: "one of rule_id, event_type or filter is required",
		}
	}

	if t.RuleID != "" && (t.EventType != "" || t.Filter != "") {
		return &ValidationError{
			Field:   "rule_id",
			Message: "rule_id cannot be combined with event_type or filter",
		}
	}

	return nil
}
