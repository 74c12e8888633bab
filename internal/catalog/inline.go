package catalog

import (
	"fmt"
	"strings"

	"ruleflow/internal/condition"
	apperrors "ruleflow/pkg/errors"
)

const (
	BranchThen = "then"
	BranchElse = "else"
)

var inlineAliases = map[string]ActionType{
	"send_email":    ActionEmail,
	"email":         ActionEmail,
	"send_sms":      ActionSMS,
	"sms":           ActionSMS,
	"call_webhook":  ActionWebhook,
	"webhook":       ActionWebhook,
	"update_record": ActionDatabase,
	"database":      ActionDatabase,
	"notify":        ActionNotification,
	"notification":  ActionNotification,
}

// positional argument order per action type
var inlinePositional = map[ActionType][]string{
	ActionEmail:        {"to", "subject", "body"},
	ActionSMS:          {"to", "message"},
	ActionWebhook:      {"url", "method", "body"},
	ActionDatabase:     {"collection"},
	ActionNotification: {"message", "channel"},
}

// InlineActionID names the i-th call of a rule branch.
func InlineActionID(ruleID, branch string, i int) string {
	return fmt.Sprintf("%s#%s[%d]", ruleID, branch, i)
}

// InlineAction turns an action call written in rule source into an Action.
// For update_record, arguments prefixed with "where_" build the filter and
// every other named argument goes to the update.
func InlineAction(ruleID, branch string, i int, call condition.ActionCall) (*Action, error) {
	t, ok := inlineAliases[strings.ToLower(call.Name)]
	if !ok {
		return nil, apperrors.ErrValidation.WithDetail("message",
			fmt.Sprintf("unknown action %q at line %d, column %d", call.Name, call.Pos.Line, call.Pos.Column))
	}

	names := inlinePositional[t]
	raw := make(map[string]interface{})
	positional := call.Positional()
	if len(positional) > len(names) {
		return nil, apperrors.ErrValidation.WithDetail("message",
			fmt.Sprintf("%s takes at most %d positional arguments", call.Name, len(names)))
	}
	for j, lit := range positional {
		raw[names[j]] = lit.Value()
	}

	if t == ActionDatabase {
		filter := map[string]interface{}{}
		set := map[string]interface{}{}
		for key, lit := range call.Named() {
			switch {
			case key == "collection":
				raw["collection"] = lit.Value()
			case key == "upsert":
				raw["upsert"] = lit.Value()
			case strings.HasPrefix(key, "where_"):
				filter[strings.TrimPrefix(key, "where_")] = lit.Value()
			default:
				set[key] = lit.Value()
			}
		}
		raw["filter"] = filter
		raw["set"] = set
	} else {
		for key, lit := range call.Named() {
			raw[key] = lit.Value()
		}
	}

	action := &Action{
		ID:     InlineActionID(ruleID, branch, i),
		Name:   call.Name,
		Type:   t,
		Status: StatusActive,
		Config: raw,
	}
	_ = action.Compile()
	return action, nil
}
