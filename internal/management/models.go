package management

import (
	"time"

	"ruleflow/internal/catalog"
)

const (
	EntityRule   = "rule"
	EntityAction = "action"
)

type CreateRuleRequest struct {
	ID          string         `json:"id"`
	CustomerID  string         `json:"customer_id" binding:"required"`
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	Priority    int            `json:"priority"`
	Status      catalog.Status `json:"status"`
	EventTypes  []string       `json:"event_types"`
	Tags        []string       `json:"tags"`
	Condition   string         `json:"condition" binding:"required"`
	ActionIDs   []string       `json:"action_ids"`
}

type UpdateRuleRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Priority    *int            `json:"priority"`
	Status      *catalog.Status `json:"status"`
	EventTypes  *[]string       `json:"event_types"`
	Tags        *[]string       `json:"tags"`
	Condition   *string         `json:"condition"`
	ActionIDs   *[]string       `json:"action_ids"`
}

type CreateActionRequest struct {
	ID         string                 `json:"id"`
	CustomerID string                 `json:"customer_id"`
	Name       string                 `json:"name" binding:"required"`
	Type       catalog.ActionType     `json:"type" binding:"required"`
	Status     catalog.Status         `json:"status"`
	Config     map[string]interface{} `json:"config" binding:"required"`
}

type UpdateActionRequest struct {
	Name   *string                 `json:"name"`
	Status *catalog.Status         `json:"status"`
	Config *map[string]interface{} `json:"config"`
}

// RuleQuery narrows ListRules. Zero fields match everything.
type RuleQuery struct {
	CustomerID string
	Status     catalog.Status
	EventType  string
	Tag        string
}

type ActionQuery struct {
	CustomerID string
	Type       catalog.ActionType
}

type ValidateConditionRequest struct {
	Condition string `json:"condition" binding:"required"`
}

// ConditionReport describes a parsed rule condition.
type ConditionReport struct {
	Valid       bool     `json:"valid"`
	Paths       []string `json:"paths,omitempty"`
	ThenActions []string `json:"then_actions,omitempty"`
	ElseActions []string `json:"else_actions,omitempty"`
}

type ValidateFilterRequest struct {
	Filter string `json:"filter" binding:"required"`
}

// Version is one stored snapshot of a rule or action.
type Version struct {
	ID         string                 `json:"id"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Version    int                    `json:"version"`
	Data       map[string]interface{} `json:"data"`
	ChangedBy  string                 `json:"changed_by,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

type AuditLog struct {
	ID         int64                  `json:"id"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Operation  string                 `json:"operation"`
	TraceID    string                 `json:"trace_id,omitempty"`
	Changes    map[string]interface{} `json:"changes,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}
