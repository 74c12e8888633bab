package models

import "time"

// ConfigUpdateEvent is published by the catalog service after a successful
// write so engines reload their rule snapshot. EntityID is empty for a full
// reload.
type ConfigUpdateEvent struct {
	EventType   string                 `json:"event_type"`
	ServiceType string                 `json:"service_type"`
	EntityID    string                 `json:"entity_id,omitempty"`
	Action      string                 `json:"action"`
	Timestamp   time.Time              `json:"timestamp"`
	ChangedBy   string                 `json:"changed_by,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Event types.
const (
	EventTypeRuleUpdated     = "rule_updated"
	EventTypeActionUpdated   = "action_updated"
	EventTypeCatalogReloaded = "catalog_reloaded"
)

// Change actions, shared with catalog audit records.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionReload = "reload"
)

// ServiceTypeCatalog marks events that concern the rule catalog.
const ServiceTypeCatalog = "catalog"
