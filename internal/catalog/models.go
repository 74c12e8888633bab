// Package catalog holds the engine's read-only view of rules and actions:
// loading them from MongoDB or a YAML file, compiling conditions and action
// configurations once per reload, and selecting the rules a trigger applies
// to.
package catalog

import "time"

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDraft    Status = "draft"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDraft:
		return true
	}
	return false
}

// Stats are the persisted copy of a rule's or action's running counters.
type Stats struct {
	ExecutionCount    int64      `json:"execution_count" bson:"execution_count"`
	SuccessCount      int64      `json:"success_count" bson:"success_count"`
	SuccessRate       float64    `json:"success_rate" bson:"success_rate"`
	AvgResponseTimeMs float64    `json:"avg_response_time_ms" bson:"avg_response_time_ms"`
	LastExecutedAt    *time.Time `json:"last_executed_at,omitempty" bson:"last_executed_at,omitempty"`
}

type Rule struct {
	ID          string    `json:"id" bson:"_id" yaml:"id"`
	CustomerID  string    `json:"customer_id" bson:"customer_id" yaml:"customer_id"`
	Name        string    `json:"name" bson:"name" yaml:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty" yaml:"description"`
	Priority    int       `json:"priority" bson:"priority" yaml:"priority"`
	Status      Status    `json:"status" bson:"status" yaml:"status"`
	EventTypes  []string  `json:"event_types,omitempty" bson:"event_types,omitempty" yaml:"event_types"`
	Tags        []string  `json:"tags,omitempty" bson:"tags,omitempty" yaml:"tags"`
	Condition   string    `json:"condition" bson:"condition" yaml:"condition"`
	ActionIDs   []string  `json:"action_ids,omitempty" bson:"action_ids,omitempty" yaml:"action_ids"`
	Stats       Stats     `json:"stats" bson:"stats" yaml:"-"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at" yaml:"-"`
}

// Attributes is the view of a rule that trigger filters are evaluated
// against.
func (r *Rule) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"id":          r.ID,
		"name":        r.Name,
		"customer_id": r.CustomerID,
		"priority":    r.Priority,
		"status":      string(r.Status),
		"tags":        toList(r.Tags),
		"event_types": toList(r.EventTypes),
	}
}

func toList(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

type ActionType string

const (
	ActionEmail        ActionType = "email"
	ActionSMS          ActionType = "sms"
	ActionWebhook      ActionType = "webhook"
	ActionDatabase     ActionType = "database"
	ActionNotification ActionType = "notification"
)

func (t ActionType) Valid() bool {
	switch t {
	case ActionEmail, ActionSMS, ActionWebhook, ActionDatabase, ActionNotification:
		return true
	}
	return false
}

// Action is shared by reference between rules. Config is stored as a plain
// document and decoded into the ActionConfig variant for Type.
type Action struct {
	ID         string                 `json:"id" bson:"_id" yaml:"id"`
	CustomerID string                 `json:"customer_id,omitempty" bson:"customer_id,omitempty" yaml:"customer_id"`
	Name       string                 `json:"name" bson:"name" yaml:"name"`
	Type       ActionType             `json:"type" bson:"type" yaml:"type"`
	Status     Status                 `json:"status" bson:"status" yaml:"status"`
	Config     map[string]interface{} `json:"config" bson:"config" yaml:"config"`
	Stats      Stats                  `json:"stats" bson:"stats" yaml:"-"`
	CreatedAt  time.Time              `json:"created_at" bson:"created_at" yaml:"-"`
	UpdatedAt  time.Time              `json:"updated_at" bson:"updated_at" yaml:"-"`

	typed     ActionConfig
	decodeErr error
}

// Compile decodes and validates Config once so dispatch does not have to.
func (a *Action) Compile() error {
	a.typed, a.decodeErr = DecodeConfig(a.Type, a.Config)
	return a.decodeErr
}

// ConfigErr is the error recorded by the last Compile, if any.
func (a *Action) ConfigErr() error { return a.decodeErr }

// TypedConfig returns the decoded configuration, decoding on demand when
// Compile has not run.
func (a *Action) TypedConfig() (ActionConfig, error) {
	if a.typed != nil || a.decodeErr != nil {
		return a.typed, a.decodeErr
	}
	return DecodeConfig(a.Type, a.Config)
}

// Document is the unit a catalog source loads.
type Document struct {
	Rules   []Rule   `yaml:"rules"`
	Actions []Action `yaml:"actions"`
}
