//go:build integration

package broker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruleflow/internal/broker"
	"ruleflow/internal/config"
	"ruleflow/internal/logger"
	"ruleflow/internal/testinfra"
	"ruleflow/pkg/models"
	"ruleflow/pkg/retry"
)

func kafkaConfig(brokers []string) config.KafkaConfig {
	return config.KafkaConfig{
		Brokers:  brokers,
		GroupID:  "broker-test-" + uuid.NewString(),
		DLQTopic: "dlq-" + uuid.NewString(),
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     20 * time.Millisecond,
			Multiplier:      2,
		},
	}
}

func envelope(t *testing.T) models.MessageEnvelope {
	env, err := models.NewMessageEnvelopeBuilder().
		WithSource("broker-test").
		WithType(models.EnvelopeTypeTrigger).
		WithPayload(map[string]interface{}{"trigger_id": "t-1"}).
		Build()
	require.NoError(t, err)
	return *env
}

func TestKafka_PublishConsume(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Kafka: true})
	cfg := kafkaConfig(infra.KafkaBrokers)
	topic := "triggers-" + uuid.NewString()
	log := logger.NopLogger()

	producer := broker.NewKafkaProducer(cfg, log)
	defer producer.Close()

	sent := envelope(t)
	require.Eventually(t, func() bool {
		return producer.Publish(context.Background(), topic, sent) == nil
	}, 30*time.Second, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	consumer := broker.NewKafkaConsumer(cfg, log)
	received := make(chan models.MessageEnvelope, 1)
	go func() {
		_ = consumer.Consume(ctx, topic, func(ctx context.Context, msg models.MessageEnvelope) error {
			received <- msg
			return nil
		})
	}()

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "t-1", got.Payload["trigger_id"])
	case <-ctx.Done():
		t.Fatal("message not consumed")
	}
	cancel()
	require.NoError(t, consumer.Close())
}

func TestKafka_FatalErrorGoesToDLQ(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Kafka: true})
	cfg := kafkaConfig(infra.KafkaBrokers)
	topic := "triggers-" + uuid.NewString()
	log := logger.NopLogger()

	producer := broker.NewKafkaProducer(cfg, log)
	defer producer.Close()

	sent := envelope(t)
	require.Eventually(t, func() bool {
		return producer.Publish(context.Background(), topic, sent) == nil
	}, 30*time.Second, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	var calls atomic.Int32
	consumer := broker.NewKafkaConsumer(cfg, log)
	go func() {
		_ = consumer.Consume(ctx, topic, func(ctx context.Context, msg models.MessageEnvelope) error {
			calls.Add(1)
			return retry.NewFatalError(errors.New("rule catalog rejected trigger"))
		})
	}()

	dlqCfg := cfg
	dlqCfg.GroupID = "dlq-reader-" + uuid.NewString()
	dlqCfg.DLQTopic = ""
	dlqReader := broker.NewKafkaConsumer(dlqCfg, log)
	dead := make(chan models.MessageEnvelope, 1)
	go func() {
		_ = dlqReader.Consume(ctx, cfg.DLQTopic, func(ctx context.Context, msg models.MessageEnvelope) error {
			dead <- msg
			return nil
		})
	}()

	select {
	case got := <-dead:
		assert.Equal(t, sent.ID, got.ID)
		reason, ok := got.Attribute(broker.AttrDLQReason)
		require.True(t, ok)
		assert.Contains(t, reason, "rejected trigger")
		source, _ := got.Attribute(broker.AttrDLQSourceTopic)
		assert.Equal(t, topic, source)
		assert.Equal(t, int32(1), calls.Load())
	case <-ctx.Done():
		t.Fatal("message never reached the DLQ")
	}
	cancel()
	_ = consumer.Close()
	_ = dlqReader.Close()
}
