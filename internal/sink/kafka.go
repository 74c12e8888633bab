package sink

import (
	"context"
	"fmt"

	"ruleflow/internal/broker"
	"ruleflow/pkg/models"
)

const (
	AttrRuleID = "rule_id"
	AttrStatus = "status"
)

// KafkaSink publishes each record to the execution stream, keyed by
// execution id.
type KafkaSink struct {
	producer broker.Producer
	topic    string
	source   string
}

func NewKafkaSink(producer broker.Producer, topic, source string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, source: source}
}

func (s *KafkaSink) Write(ctx context.Context, record models.ExecutionRecord) error {
	env, err := models.NewMessageEnvelopeBuilder().
		WithID(record.ID).
		WithSource(s.source).
		WithType(models.EnvelopeTypeExecutionRecord).
		WithPayloadOf(record).
		WithAttribute(AttrRuleID, record.RuleID).
		WithAttribute(AttrStatus, string(record.Status)).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build execution envelope: %w", err)
	}
	return s.producer.Publish(ctx, s.topic, *env)
}
