package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateEngine(cfg.Engine); err != nil {
		errors = append(errors, err)
	}

	if err := validateCatalog(cfg.Catalog); err != nil {
		errors = append(errors, err)
	}

	if err := validateIdempotency(cfg.Idempotency); err != nil {
		errors = append(errors, err)
	}

	if err := validateScheduler(cfg.Scheduler); err != nil {
		errors = append(errors, err)
	}

	if err := validateDelivery(cfg.Delivery); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if cfg.Type == "" {
		return &ValidationError{
			Field:   "broker.type",
			Message: "broker type is required",
		}
	}

	switch cfg.Type {
	case "kafka":
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.InitialInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.initial_interval",
			Message: "initial_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.Multiplier <= 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if cfg.URI == "" {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI is required",
		}
	}

	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	if cfg.Database == "" {
		return &ValidationError{
			Field:   "database.mongodb.database",
			Message: "MongoDB database name is required",
		}
	}

	return nil
}

func validateEngine(cfg EngineConfig) error {
	if cfg.MaxConcurrentActions < 1 {
		return &ValidationError{
			Field:   "engine.max_concurrent_actions",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.MaxConcurrentActions),
		}
	}

	if cfg.ActionTimeout <= 0 {
		return &ValidationError{
			Field:   "engine.action_timeout",
			Message: "action timeout must be positive",
		}
	}

	if cfg.PassTimeout > 0 && cfg.PassTimeout < cfg.ActionTimeout {
		return &ValidationError{
			Field:   "engine.pass_timeout",
			Message: "pass timeout must not be shorter than the action timeout",
		}
	}

	if cfg.MetricsSmoothing <= 0 || cfg.MetricsSmoothing > 1 {
		return &ValidationError{
			Field:   "engine.metrics_smoothing",
			Message: fmt.Sprintf("smoothing factor must be in (0, 1], got %v", cfg.MetricsSmoothing),
		}
	}

	validSinks := map[string]bool{"postgres": true, "kafka": true, "log": true}
	for i, sink := range cfg.Sinks {
		if !validSinks[strings.ToLower(sink)] {
			return &ValidationError{
				Field:   fmt.Sprintf("engine.sinks[%d]", i),
				Message: fmt.Sprintf("unknown sink: %s (valid: postgres, kafka, log)", sink),
			}
		}
	}

	return nil
}

func validateCatalog(cfg CatalogConfig) error {
	switch cfg.Source {
	case "mongodb":
	case "file":
		if cfg.FilePath == "" {
			return &ValidationError{
				Field:   "catalog.file_path",
				Message: "file path is required for the file catalog source",
			}
		}
	default:
		return &ValidationError{
			Field:   "catalog.source",
			Message: fmt.Sprintf("unknown catalog source: %s (valid: mongodb, file)", cfg.Source),
		}
	}

	if cfg.Reload.IntervalSeconds < 0 || cfg.Reload.JitterMaxMilliseconds < 0 {
		return &ValidationError{
			Field:   "catalog.reload",
			Message: "reload interval and jitter must be non-negative",
		}
	}

	return nil
}

func validateIdempotency(cfg IdempotencyConfig) error {
	if cfg.TTLSeconds < 0 {
		return &ValidationError{
			Field:   "idempotency.ttl_seconds",
			Message: "TTL must be non-negative",
		}
	}

	validOnError := map[string]bool{
		"allow": true, "reject": true,
	}
	if cfg.OnRedisError != "" && !validOnError[strings.ToLower(cfg.OnRedisError)] {
		return &ValidationError{
			Field:   "idempotency.on_redis_error",
			Message: fmt.Sprintf("invalid on_redis_error value: %s (valid: allow, reject)", cfg.OnRedisError),
		}
	}

	return nil
}

func validateScheduler(cfg SchedulerConfig) error {
	for i, job := range cfg.Jobs {
		if _, err := cron.ParseStandard(job.Schedule); err != nil {
			return &ValidationError{
				Field:   fmt.Sprintf("scheduler.jobs[%d].schedule", i),
				Message: fmt.Sprintf("invalid cron schedule %q: %v", job.Schedule, err),
			}
		}
		if job.EventType == "" && job.RuleID == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("scheduler.jobs[%d]", i),
				Message: "either event_type or rule_id is required",
			}
		}
	}
	return nil
}

func validateDelivery(cfg DeliveryConfig) error {
	if cfg.SMTP.Host != "" && (cfg.SMTP.Port < 1 || cfg.SMTP.Port > 65535) {
		return &ValidationError{
			Field:   "delivery.smtp.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.SMTP.Port),
		}
	}

	if cfg.SMS.GatewayURL != "" && !strings.HasPrefix(cfg.SMS.GatewayURL, "http://") && !strings.HasPrefix(cfg.SMS.GatewayURL, "https://") {
		return &ValidationError{
			Field:   "delivery.sms.gateway_url",
			Message: "gateway URL must be http(s)",
		}
	}

	switch cfg.Notification.Backend {
	case "", "redis", "kafka":
	default:
		return &ValidationError{
			Field:   "delivery.notification.backend",
			Message: fmt.Sprintf("unknown notification backend: %s (valid: redis, kafka)", cfg.Notification.Backend),
		}
	}

	return nil
}
