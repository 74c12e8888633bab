package management

import (
	"context"

	"ruleflow/internal/catalog"
)

type Service interface {
	CreateRule(ctx context.Context, req CreateRuleRequest) (*catalog.Rule, error)
	ListRules(ctx context.Context, q RuleQuery) ([]catalog.Rule, error)
	GetRule(ctx context.Context, id string) (*catalog.Rule, error)
	UpdateRule(ctx context.Context, id string, req UpdateRuleRequest) (*catalog.Rule, error)
	DeleteRule(ctx context.Context, id string) error

	CreateAction(ctx context.Context, req CreateActionRequest) (*catalog.Action, error)
	ListActions(ctx context.Context, q ActionQuery) ([]catalog.Action, error)
	GetAction(ctx context.Context, id string) (*catalog.Action, error)
	UpdateAction(ctx context.Context, id string, req UpdateActionRequest) (*catalog.Action, error)
	DeleteAction(ctx context.Context, id string) error

	ValidateCondition(ctx context.Context, source string) (*ConditionReport, error)
	ValidateFilter(ctx context.Context, filter string) error

	GetVersions(ctx context.Context, entityType, id string) ([]Version, error)
	GetVersion(ctx context.Context, entityType, id string, version int) (*Version, error)
	GetAuditLogs(ctx context.Context, entityType, id string, limit int) ([]AuditLog, error)

	RequestReload(ctx context.Context) error
}

// AuditStore is the subset of AuditLogger the service uses.
type AuditStore interface {
	Log(ctx context.Context, entry AuditEntry) error
	List(ctx context.Context, entityType, entityID string, limit int) ([]AuditLog, error)
}

// FilterValidator checks trigger filter expressions.
type FilterValidator interface {
	ValidateFilterExpression(expression string) error
}

// EventPublisher announces catalog changes.
type EventPublisher interface {
	PublishRuleEvent(ctx context.Context, action, ruleID, changedBy string) error
	PublishActionEvent(ctx context.Context, action, actionID, changedBy string) error
	PublishReload(ctx context.Context, changedBy string) error
}
