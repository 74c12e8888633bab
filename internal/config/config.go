package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Engine         EngineConfig
	Catalog        CatalogConfig
	Entity         EntityConfig
	Delivery       DeliveryConfig
	Idempotency    IdempotencyConfig
	Scheduler      SchedulerConfig
	Management     ManagementConfig
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig
	Redis         RedisConfig
	MongoDB       MongoDBConfig
	RunMigrations bool   `mapstructure:"run_migrations"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers           []string    `mapstructure:"brokers"`
	GroupID           string      `mapstructure:"group_id"`
	InputTopic        string      `mapstructure:"input_topic"`
	OutputTopic       string      `mapstructure:"output_topic"`
	NotificationTopic string      `mapstructure:"notification_topic"`
	ConfigUpdateTopic string      `mapstructure:"config_update_topic"`
	DLQTopic          string      `mapstructure:"dlq_topic"`
	Retry             RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig bounds one orchestration pass.
type EngineConfig struct {
	MaxConcurrentActions int           `mapstructure:"max_concurrent_actions"`
	ActionTimeout        time.Duration `mapstructure:"action_timeout"`
	PassTimeout          time.Duration `mapstructure:"pass_timeout"`
	MetricsSmoothing     float64       `mapstructure:"metrics_smoothing"`
	StatsFlushInterval   time.Duration `mapstructure:"stats_flush_interval"`
	Sinks                []string      `mapstructure:"sinks"`
}

type CatalogConfig struct {
	Source   string       `mapstructure:"source"` // "mongodb" or "file"
	FilePath string       `mapstructure:"file_path"`
	Reload   ReloadConfig `mapstructure:"reload"`
}

type ReloadConfig struct {
	IntervalSeconds       int `mapstructure:"interval_seconds"`
	JitterMaxMilliseconds int `mapstructure:"jitter_max_milliseconds"`
}

type EntityConfig struct {
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	WatchChanges bool          `mapstructure:"watch_changes"`
}

type DeliveryConfig struct {
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	SMS          SMSConfig          `mapstructure:"sms"`
	Webhook      WebhookConfig      `mapstructure:"webhook"`
	Database     RecordConfig       `mapstructure:"database"`
	Notification NotificationConfig `mapstructure:"notification"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type SMSConfig struct {
	GatewayURL string      `mapstructure:"gateway_url"`
	APIKey     string      `mapstructure:"api_key"`
	SenderID   string      `mapstructure:"sender_id"`
	Retry      RetryConfig `mapstructure:"retry"`
}

type WebhookConfig struct {
	DefaultMethod string            `mapstructure:"default_method"`
	Headers       map[string]string `mapstructure:"headers"`
	Retry         RetryConfig       `mapstructure:"retry"`
}

// RecordConfig restricts which collections the database action may mutate.
type RecordConfig struct {
	AllowedCollections []string `mapstructure:"allowed_collections"`
}

type NotificationConfig struct {
	Backend       string `mapstructure:"backend"` // "redis" or "kafka"
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

type IdempotencyConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	TTLSeconds   int    `mapstructure:"ttl_seconds"`
	OnRedisError string `mapstructure:"on_redis_error"`
}

type SchedulerConfig struct {
	Jobs []ScheduledTrigger `mapstructure:"jobs"`
}

type ScheduledTrigger struct {
	Name       string                 `mapstructure:"name"`
	Schedule   string                 `mapstructure:"schedule"`
	CustomerID string                 `mapstructure:"customer_id"`
	EventType  string                 `mapstructure:"event_type"`
	RuleID     string                 `mapstructure:"rule_id"`
	Filter     string                 `mapstructure:"filter"`
	Payload    map[string]interface{} `mapstructure:"payload"`
}

type ManagementConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
