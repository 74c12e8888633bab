package management

import (
	"context"
	"fmt"
	"time"

	"ruleflow/internal/broker"
	"ruleflow/internal/constants"
	"ruleflow/pkg/logging"
	"ruleflow/pkg/models"
)

// ConfigEventProducer tells engines that the catalog changed.
type ConfigEventProducer struct {
	producer broker.Producer
	topic    string
}

func NewConfigEventProducer(producer broker.Producer, topic string) *ConfigEventProducer {
	return &ConfigEventProducer{
		producer: producer,
		topic:    topic,
	}
}

func (p *ConfigEventProducer) PublishRuleEvent(ctx context.Context, action, ruleID, changedBy string) error {
	return p.publish(ctx, models.EventTypeRuleUpdated, action, ruleID, changedBy)
}

func (p *ConfigEventProducer) PublishActionEvent(ctx context.Context, action, actionID, changedBy string) error {
	return p.publish(ctx, models.EventTypeActionUpdated, action, actionID, changedBy)
}

// PublishReload asks every engine to reload without naming an entry.
func (p *ConfigEventProducer) PublishReload(ctx context.Context, changedBy string) error {
	return p.publish(ctx, models.EventTypeCatalogReloaded, models.ActionReload, "", changedBy)
}

func (p *ConfigEventProducer) publish(ctx context.Context, eventType, action, entityID, changedBy string) error {
	if p == nil || p.producer == nil || p.topic == "" {
		return nil
	}

	event := models.ConfigUpdateEvent{
		EventType:   eventType,
		ServiceType: models.ServiceTypeCatalog,
		EntityID:    entityID,
		Action:      action,
		Timestamp:   time.Now().UTC(),
		ChangedBy:   changedBy,
	}

	envelope, err := models.NewMessageEnvelopeBuilder().
		WithSource(constants.ServiceNameCatalog).
		WithType(models.EnvelopeTypeConfigUpdate).
		WithPayloadOf(event).
		WithTraceID(logging.GetTraceID(ctx)).
		WithAttribute("event_type", eventType).
		WithAttribute("service_type", event.ServiceType).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build config event: %w", err)
	}

	return p.producer.Publish(ctx, p.topic, *envelope)
}
