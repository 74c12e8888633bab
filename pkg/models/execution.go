package models

import (
	"time"

	"ruleflow/internal/condition"
)

type ActionOutcome string

const (
	OutcomeSuccess ActionOutcome = "success"
	OutcomeFailed  ActionOutcome = "failed"
	OutcomeSkipped ActionOutcome = "skipped"
)

type ExecutionStatus string

const (
	StatusSuccess        ExecutionStatus = "success"
	StatusPartialSuccess ExecutionStatus = "partial_success"
	StatusFailed         ExecutionStatus = "failed"
	StatusNotMatched     ExecutionStatus = "not_matched"
)

// Error classes recorded on failed or skipped actions and failed rules.
const (
	ClassTimeout           = "timeout"
	ClassDeliveryFailed    = "delivery_failed"
	ClassCircuitOpen       = "circuit_open"
	ClassInvalidConfig     = "invalid_config"
	ClassCapabilityMissing = "capability_missing"
	ClassActionNotFound    = "action_not_found"
	ClassPanic             = "panic"
	ClassDeadlineExceeded  = "deadline_exceeded"
	ClassInactive          = "inactive"
	ClassSyntaxError       = "syntax_error"
	ClassInternal          = "internal"
)

type ErrorDetail struct {
	Class   string `json:"class"`
	Message string `json:"message,omitempty"`
}

type ActionResult struct {
	ActionID string                 `json:"action_id"`
	Type     string                 `json:"type,omitempty"`
	Outcome  ActionOutcome          `json:"outcome"`
	Duration time.Duration          `json:"duration_ns"`
	Error    *ErrorDetail           `json:"error,omitempty"`
	Result   map[string]interface{} `json:"result,omitempty"`
}

// ExecutionRecord is the audit artifact of one rule attempt within a pass.
type ExecutionRecord struct {
	ID         string                `json:"execution_id"`
	RuleID     string                `json:"rule_id"`
	RuleName   string                `json:"rule_name,omitempty"`
	Trigger    Trigger               `json:"trigger"`
	Matched    bool                  `json:"matched"`
	Traces     []condition.LeafTrace `json:"traces"`
	Actions    []ActionResult        `json:"actions"`
	Status     ExecutionStatus       `json:"status"`
	Error      *ErrorDetail          `json:"error,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
}

func (r *ExecutionRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports how many of the record's actions succeeded.
func (r *ExecutionRecord) Succeeded() int {
	n := 0
	for _, a := range r.Actions {
		if a.Outcome == OutcomeSuccess {
			n++
		}
	}
	return n
}

// Summary is returned to the trigger caller for one pass.
type Summary struct {
	TriggerID       string            `json:"trigger_id"`
	RulesEvaluated  int               `json:"rules_evaluated"`
	RulesMatched    int               `json:"rules_matched"`
	ActionsExecuted int               `json:"actions_executed"`
	SuccessRate     float64           `json:"success_rate"`
	Duplicate       bool              `json:"duplicate,omitempty"`
	Records         []ExecutionRecord `json:"records"`
}
