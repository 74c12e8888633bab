// Package broker moves MessageEnvelopes over Kafka: trigger intake,
// execution record and notification fan-out, and catalog config updates.
package broker

import (
	"context"

	"ruleflow/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

// HandlerFunc processes one envelope. Returning an error built with
// retry.NewFatalError sends the message to the DLQ without retrying.
type HandlerFunc func(ctx context.Context, msg models.MessageEnvelope) error
