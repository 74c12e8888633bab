package models

import "time"

type TriggerType string

const (
	TriggerTimer         TriggerType = "timer"
	TriggerRequest       TriggerType = "request"
	TriggerStorageChange TriggerType = "storage_change"
	TriggerEvent         TriggerType = "event"
)

func (t TriggerType) Valid() bool {
	switch t {
	case TriggerTimer, TriggerRequest, TriggerStorageChange, TriggerEvent:
		return true
	}
	return false
}

// EntityIDs references the domain entities a trigger is about. Empty ids are
// not fetched.
type EntityIDs struct {
	CustomerID string `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	OrderID    string `json:"order_id,omitempty" bson:"order_id,omitempty"`
	ProductID  string `json:"product_id,omitempty" bson:"product_id,omitempty"`
}

// Trigger is the normalized descriptor every intake path produces.
//
// Exactly one selection mode applies: RuleID selects a single rule,
// otherwise EventType and/or Filter select a customer-scoped rule set.
type Trigger struct {
	ID   string      `json:"trigger_id"`
	Type TriggerType `json:"trigger_type"`
	// CustomerID is the requesting customer; rule ownership is checked
	// against it. Empty means a system trigger that may select any rule.
	CustomerID string                 `json:"customer_id,omitempty"`
	EventType  string                 `json:"event_type,omitempty"`
	RuleID     string                 `json:"rule_id,omitempty"`
	Filter     string                 `json:"filter,omitempty"`
	Entities   EntityIDs              `json:"entity_ids"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	ReceivedAt time.Time              `json:"received_at"`
}
