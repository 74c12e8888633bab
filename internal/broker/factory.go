package broker

import (
	"fmt"

	"ruleflow/internal/config"
	"ruleflow/internal/logger"
)

// TypeKafka is the only supported transport; an empty type selects it.
const TypeKafka = "kafka"

func kafkaSettings(cfg config.BrokerConfig) (config.KafkaConfig, error) {
	if cfg.Type != "" && cfg.Type != TypeKafka {
		return config.KafkaConfig{}, fmt.Errorf("unsupported broker type %q", cfg.Type)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return config.KafkaConfig{}, fmt.Errorf("broker %s: no brokers configured", TypeKafka)
	}
	return cfg.Kafka, nil
}

// NewProducer publishes envelopes for trigger results, notifications and
// catalog config updates.
func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	kafkaCfg, err := kafkaSettings(cfg)
	if err != nil {
		return nil, err
	}
	return NewKafkaProducer(kafkaCfg, log), nil
}

// NewConsumer reads envelopes as member of the configured group. Messages
// failing permanently go to the DLQ topic when one is set.
func NewConsumer(cfg config.BrokerConfig, log logger.Logger) (Consumer, error) {
	kafkaCfg, err := kafkaSettings(cfg)
	if err != nil {
		return nil, err
	}
	if kafkaCfg.GroupID == "" {
		return nil, fmt.Errorf("broker %s: consumer requires group_id", TypeKafka)
	}
	return NewKafkaConsumer(kafkaCfg, log), nil
}
