package delivery

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"ruleflow/internal/broker"
	"ruleflow/internal/config"
	"ruleflow/internal/constants"
	"ruleflow/internal/logger"
	"ruleflow/pkg/circuitbreaker"
)

// Deps are the clients capabilities are built on. Nil clients leave the
// matching capability unregistered; actions of that type then fail with
// capability_missing.
type Deps struct {
	HTTPClient *http.Client
	MongoDB    *mongo.Database
	Redis      redis.Cmdable
	Producer   broker.Producer
	Logger     logger.Logger
}

const (
	BackendRedis = "redis"
	BackendKafka = "kafka"
)

func NewRegistryFromConfig(cfg *config.Config, deps Deps) *Registry {
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}

	var caps []Capability
	if cfg.Delivery.SMTP.Host != "" {
		caps = append(caps, NewSMTPMailer(cfg.Delivery.SMTP))
	}
	if cfg.Delivery.SMS.GatewayURL != "" {
		caps = append(caps, NewSMSGateway(client, cfg.Delivery.SMS, deps.Logger))
	}
	caps = append(caps, NewWebhook(client, cfg.Delivery.Webhook, deps.Logger))
	if deps.MongoDB != nil {
		caps = append(caps, NewRecordUpdater(deps.MongoDB, cfg.Delivery.Database))
	}

	switch cfg.Delivery.Notification.Backend {
	case BackendKafka:
		if deps.Producer != nil {
			caps = append(caps, NewKafkaNotifier(deps.Producer, cfg.Broker.Kafka.NotificationTopic, constants.ServiceNameEngine))
		}
	default:
		if deps.Redis != nil {
			caps = append(caps, NewRedisNotifier(deps.Redis, cfg.Delivery.Notification))
		}
	}

	registry := NewRegistry()
	for _, c := range caps {
		if cfg.CircuitBreaker.Enabled {
			c = WithBreaker(c, circuitbreaker.FromConfig("delivery_"+string(c.Type()), cfg.CircuitBreaker))
		}
		registry.Register(c)
	}

	deps.Logger.Infow("Delivery capabilities registered", "types", registry.Types())
	return registry
}
