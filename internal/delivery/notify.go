package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ruleflow/internal/broker"
	"ruleflow/internal/catalog"
	"ruleflow/internal/config"
	"ruleflow/pkg/models"
)

const defaultNotificationChannel = "default"

type notification struct {
	Channel   string    `json:"channel"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message"`
	Recipient string    `json:"recipient,omitempty"`
	Level     string    `json:"level"`
	SentAt    time.Time `json:"sent_at"`
}

func newNotification(n *catalog.NotificationConfig) notification {
	out := notification{
		Channel:   n.Channel,
		Title:     n.Title,
		Message:   n.Message,
		Recipient: n.Recipient,
		Level:     n.Level,
		SentAt:    time.Now().UTC(),
	}
	if out.Channel == "" {
		out.Channel = defaultNotificationChannel
	}
	if out.Level == "" {
		out.Level = "info"
	}
	return out
}

// RedisNotifier publishes notifications on the pub/sub channel
// <prefix><channel>.
type RedisNotifier struct {
	client redis.Cmdable
	prefix string
}

func NewRedisNotifier(client redis.Cmdable, cfg config.NotificationConfig) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: cfg.ChannelPrefix}
}

func (n *RedisNotifier) Type() catalog.ActionType { return catalog.ActionNotification }

func (n *RedisNotifier) Deliver(ctx context.Context, cfg catalog.ActionConfig) (map[string]interface{}, error) {
	nc, err := configAs[*catalog.NotificationConfig](cfg)
	if err != nil {
		return nil, err
	}

	msg := newNotification(nc)
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification: %w", err)
	}

	channel := n.prefix + msg.Channel
	receivers, err := n.client.Publish(ctx, channel, body).Result()
	if err != nil {
		return nil, fmt.Errorf("redis publish to %s failed: %w", channel, err)
	}

	return map[string]interface{}{
		"channel":   channel,
		"receivers": receivers,
	}, nil
}

// KafkaNotifier publishes notifications as envelopes on one topic, keyed
// by channel through the envelope's attributes.
type KafkaNotifier struct {
	producer broker.Producer
	topic    string
	source   string
}

func NewKafkaNotifier(producer broker.Producer, topic, source string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic, source: source}
}

func (n *KafkaNotifier) Type() catalog.ActionType { return catalog.ActionNotification }

func (n *KafkaNotifier) Deliver(ctx context.Context, cfg catalog.ActionConfig) (map[string]interface{}, error) {
	nc, err := configAs[*catalog.NotificationConfig](cfg)
	if err != nil {
		return nil, err
	}

	msg := newNotification(nc)
	env, err := models.NewMessageEnvelopeBuilder().
		WithSource(n.source).
		WithType(models.EnvelopeTypeNotification).
		WithPayloadOf(msg).
		WithAttribute("channel", msg.Channel).
		Build()
	if err != nil {
		return nil, err
	}

	if err := n.producer.Publish(ctx, n.topic, *env); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"topic":      n.topic,
		"message_id": env.ID,
	}, nil
}
