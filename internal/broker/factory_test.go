package broker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruleflow/internal/broker"
	"ruleflow/internal/config"
	"ruleflow/internal/logger"
)

func TestNewProducer(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.BrokerConfig
		wantErr string
	}{
		{
			name: "empty type selects kafka",
			cfg:  config.BrokerConfig{Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}}},
		},
		{
			name: "explicit kafka",
			cfg:  config.BrokerConfig{Type: broker.TypeKafka, Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}}},
		},
		{
			name:    "unknown type",
			cfg:     config.BrokerConfig{Type: "nats", Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}}},
			wantErr: `unsupported broker type "nats"`,
		},
		{
			name:    "no brokers",
			cfg:     config.BrokerConfig{Type: broker.TypeKafka},
			wantErr: "no brokers configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			producer, err := broker.NewProducer(tt.cfg, logger.NopLogger())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, producer)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, producer)
			assert.NoError(t, producer.Close())
		})
	}
}

func TestNewConsumer_RequiresGroup(t *testing.T) {
	cfg := config.BrokerConfig{Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}}}

	_, err := broker.NewConsumer(cfg, logger.NopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group_id")

	cfg.Kafka.GroupID = "ruleflow-engine"
	consumer, err := broker.NewConsumer(cfg, logger.NopLogger())
	require.NoError(t, err)
	require.NotNil(t, consumer)
}
