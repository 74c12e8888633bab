package engine

import (
	"context"
	"time"

	"ruleflow/pkg/errors"
	"ruleflow/pkg/models"
)

// HandleTriggerEnvelope runs a trigger received on the broker. The trigger id
// defaults to the envelope id so redeliveries of one message are recognised
// as duplicates, and the type defaults to event. Malformed payloads are
// reported as bad triggers, which the consumer does not retry.
func (in *Intake) HandleTriggerEnvelope(ctx context.Context, envelope models.MessageEnvelope) error {
	if envelope.Type != "" && envelope.Type != models.EnvelopeTypeTrigger {
		return nil
	}

	var trigger models.Trigger
	if err := envelope.DecodePayload(&trigger); err != nil {
		return errors.ErrBadTrigger.WithCause(err).WithDetail("message", err.Error())
	}
	if trigger.ID == "" {
		trigger.ID = envelope.ID
	}
	if trigger.Type == "" {
		trigger.Type = models.TriggerEvent
	}
	if trigger.ReceivedAt.IsZero() {
		trigger.ReceivedAt = time.Now()
	}

	_, err := in.Submit(ctx, trigger, 0)
	return err
}
