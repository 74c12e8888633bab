package catalog

import (
	"context"
	"fmt"

	"ruleflow/internal/constants"
	apperrors "ruleflow/pkg/errors"
	"ruleflow/pkg/models"
)

// Select returns the rules trigger applies to, ordered by priority then id.
//
// A trigger naming a rule id gets exactly that rule; it must exist, be
// active and belong to the trigger's customer unless the trigger carries no
// customer (system triggers). Otherwise rules are matched by event type
// against their event types and tags, and by the optional filter
// expression, restricted to active rules of the trigger's customer.
func (s *Service) Select(ctx context.Context, trigger *models.Trigger) ([]*CompiledRule, error) {
	if trigger.RuleID != "" {
		return s.selectByID(trigger)
	}

	if trigger.Filter != "" {
		if err := s.evaluator.ValidateFilterExpression(trigger.Filter); err != nil {
			return nil, apperrors.ErrBadTrigger.
				WithDetail("message", fmt.Sprintf("invalid filter: %v", err)).
				WithCause(err)
		}
	}

	var selected []*CompiledRule
	for _, r := range s.current().rules {
		if !r.Active() || !ownedBy(r, trigger.CustomerID) {
			continue
		}
		if trigger.EventType != "" && !matchesEventType(r, trigger.EventType) {
			continue
		}
		if trigger.Filter != "" {
			ok, err := s.evaluator.Match(ctx, trigger.Filter, r.Attributes())
			if err != nil {
				s.logger.DebugwCtx(ctx, "Filter did not evaluate for rule",
					"rule_id", r.ID,
					"error", err,
				)
				continue
			}
			if !ok {
				continue
			}
		}
		selected = append(selected, r)
	}
	return selected, nil
}

func (s *Service) selectByID(trigger *models.Trigger) ([]*CompiledRule, error) {
	r, ok := s.Rule(trigger.RuleID)
	if !ok || !r.Active() {
		return nil, apperrors.ErrNotFound.WithDetail("message", fmt.Sprintf("rule %s not found", trigger.RuleID))
	}
	if !ownedBy(r, trigger.CustomerID) {
		return nil, apperrors.ErrForbidden.WithDetail("message", fmt.Sprintf("rule %s belongs to another customer", trigger.RuleID))
	}
	return []*CompiledRule{r}, nil
}

func ownedBy(r *CompiledRule, customerID string) bool {
	return customerID == "" || r.CustomerID == customerID
}

func matchesEventType(r *CompiledRule, eventType string) bool {
	for _, et := range r.EventTypes {
		if et == eventType || et == constants.WildcardEventType {
			return true
		}
	}
	for _, tag := range r.Tags {
		if tag == eventType {
			return true
		}
	}
	return false
}
