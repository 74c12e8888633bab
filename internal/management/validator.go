package management

import (
	"errors"
	"fmt"
	"strings"

	"ruleflow/internal/catalog"
	"ruleflow/internal/condition"
	apperrors "ruleflow/pkg/errors"
)

const maxNameLength = 200

// ParseCondition parses source, turning a syntax error into an ErrSyntax
// application error carrying the offending token and its position.
func ParseCondition(source string) (*condition.Program, error) {
	program, err := condition.Parse(source)
	if err == nil {
		return program, nil
	}

	var syntaxErr *condition.SyntaxError
	if errors.As(err, &syntaxErr) {
		return nil, apperrors.ErrSyntax.
			WithCause(err).
			WithDetail("message", syntaxErr.Error()).
			WithDetail("token", syntaxErr.Token).
			WithDetail("line", syntaxErr.Line).
			WithDetail("column", syntaxErr.Column)
	}
	return nil, apperrors.Wrap(err, apperrors.ErrSyntax)
}

func invalid(format string, args ...interface{}) error {
	return apperrors.ErrValidation.WithDetail("message", fmt.Sprintf(format, args...))
}

// ValidateRule checks a rule about to be stored, including its condition.
func ValidateRule(rule *catalog.Rule) error {
	if strings.TrimSpace(rule.Name) == "" {
		return invalid("name is required")
	}
	if len(rule.Name) > maxNameLength {
		return invalid("name must be at most %d characters", maxNameLength)
	}
	if strings.TrimSpace(rule.CustomerID) == "" {
		return invalid("customer_id is required")
	}
	if rule.Priority < 0 {
		return invalid("priority must be non-negative, got %d", rule.Priority)
	}
	if !rule.Status.Valid() {
		return invalid("invalid status %q. Allowed: active, inactive, draft", rule.Status)
	}
	for _, et := range rule.EventTypes {
		if strings.TrimSpace(et) == "" {
			return invalid("event_types must not contain empty entries")
		}
	}
	if err := uniqueIDs(rule.ActionIDs); err != nil {
		return err
	}
	program, err := ParseCondition(rule.Condition)
	if err != nil {
		return err
	}
	if err := validateCalls(rule.ID, catalog.BranchThen, program.Then); err != nil {
		return err
	}
	return validateCalls(rule.ID, catalog.BranchElse, program.Else)
}

// validateCalls rejects unknown action names and surplus arguments in rule
// source. Field values are checked at dispatch, after interpolation.
func validateCalls(ruleID, branch string, calls []condition.ActionCall) error {
	for i, call := range calls {
		if _, err := catalog.InlineAction(ruleID, branch, i, call); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAction checks an action about to be stored. The config must
// decode into the variant for the action's type.
func ValidateAction(action *catalog.Action) error {
	if strings.TrimSpace(action.Name) == "" {
		return invalid("name is required")
	}
	if len(action.Name) > maxNameLength {
		return invalid("name must be at most %d characters", maxNameLength)
	}
	if !action.Type.Valid() {
		return invalid("invalid type %q. Allowed: email, sms, webhook, database, notification", action.Type)
	}
	if !action.Status.Valid() {
		return invalid("invalid status %q. Allowed: active, inactive, draft", action.Status)
	}
	if strings.Contains(action.ID, "#") {
		return invalid("id must not contain '#'")
	}
	_, err := catalog.DecodeConfig(action.Type, action.Config)
	return err
}

func uniqueIDs(ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return invalid("action_ids must not contain empty entries")
		}
		if _, dup := seen[id]; dup {
			return invalid("action_ids contains %q twice", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
