package logging

import (
	"context"
)

type ctxKey string

const (
	TraceIDKey     = "trace_id"
	MessageIDKey   = "message_id"
	ServiceNameKey = "service_name"
	TriggerIDKey   = "trigger_id"
	RuleIDKey      = "rule_id"
)

func with(ctx context.Context, key, value string) context.Context {
	return context.WithValue(ctx, ctxKey(key), value)
}

func get(ctx context.Context, key string) string {
	if v, ok := ctx.Value(ctxKey(key)).(string); ok {
		return v
	}
	return ""
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return with(ctx, TraceIDKey, traceID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return with(ctx, MessageIDKey, messageID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return with(ctx, ServiceNameKey, serviceName)
}

// WithTriggerID tags every log line of one orchestration pass.
func WithTriggerID(ctx context.Context, triggerID string) context.Context {
	return with(ctx, TriggerIDKey, triggerID)
}

func WithRuleID(ctx context.Context, ruleID string) context.Context {
	return with(ctx, RuleIDKey, ruleID)
}

func GetTraceID(ctx context.Context) string {
	return get(ctx, TraceIDKey)
}

func GetMessageID(ctx context.Context) string {
	return get(ctx, MessageIDKey)
}

func GetServiceName(ctx context.Context) string {
	return get(ctx, ServiceNameKey)
}

func GetTriggerID(ctx context.Context) string {
	return get(ctx, TriggerIDKey)
}

func GetRuleID(ctx context.Context) string {
	return get(ctx, RuleIDKey)
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 10)

	for _, key := range []string{TraceIDKey, MessageIDKey, TriggerIDKey, RuleIDKey, ServiceNameKey} {
		if v := get(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}

	return fields
}
