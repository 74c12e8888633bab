package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	TriggersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_triggers_total",
			Help: "Total number of triggers received by the engine (count)",
		},
		[]string{"trigger_type", "status"},
	)

	PassDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_pass_duration_ms",
			Help:    "Duration of one orchestration pass in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"trigger_type"},
	)

	RuleEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_rule_evaluations_total",
			Help: "Total number of rule evaluations by outcome status (count)",
		},
		[]string{"rule_id", "status"},
	)

	ActionDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_action_dispatch_total",
			Help: "Total number of action dispatches by type and outcome (count)",
		},
		[]string{"action_type", "outcome", "class"},
	)

	ActionDispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_action_dispatch_duration_ms",
			Help:    "Duration of action dispatches in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"action_type"},
	)

	ActiveRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_active_rules",
			Help: "Number of active rules in the engine's catalog cache (count)",
		},
	)

	CatalogReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reloads_total",
			Help: "Total number of catalog reloads (count)",
		},
		[]string{"source", "status"},
	)

	EntityLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entity_lookups_total",
			Help: "Total number of entity lookups by kind, source and status (count)",
		},
		[]string{"kind", "source", "status"},
	)

	ExecutionSinkWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "execution_sink_writes_total",
			Help: "Total number of execution records written per sink (count)",
		},
		[]string{"sink", "status"},
	)

	SchedulerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_runs_total",
			Help: "Total number of scheduled trigger runs (count)",
		},
		[]string{"job", "status"},
	)

	IdempotencyChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotency_checks_total",
			Help: "Total number of trigger idempotency checks (count)",
		},
		[]string{"result"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"service", "strategy", "reason"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)
)

func RegisterEngineMetrics() {
	prometheus.MustRegister(TriggersTotal)
	prometheus.MustRegister(PassDuration)
	prometheus.MustRegister(RuleEvaluationsTotal)
	prometheus.MustRegister(ActionDispatchTotal)
	prometheus.MustRegister(ActionDispatchDuration)
	prometheus.MustRegister(ActiveRules)
	prometheus.MustRegister(CatalogReloadsTotal)
	prometheus.MustRegister(EntityLookupsTotal)
	prometheus.MustRegister(ExecutionSinkWritesTotal)
	prometheus.MustRegister(SchedulerRunsTotal)
	prometheus.MustRegister(IdempotencyChecksTotal)
	prometheus.MustRegister(FallbackUsageTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterCatalogMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func ObservePassDuration(triggerType string, duration time.Duration) {
	PassDuration.WithLabelValues(triggerType).Observe(float64(duration.Milliseconds()))
}

func IncTrigger(triggerType, status string) {
	TriggersTotal.WithLabelValues(triggerType, status).Inc()
}

func IncRuleEvaluation(ruleID, status string) {
	RuleEvaluationsTotal.WithLabelValues(ruleID, status).Inc()
}

func ObserveActionDispatch(actionType, outcome, class string, duration time.Duration) {
	ActionDispatchTotal.WithLabelValues(actionType, outcome, class).Inc()
	ActionDispatchDuration.WithLabelValues(actionType).Observe(float64(duration.Milliseconds()))
}

func SetActiveRules(count int) {
	ActiveRules.Set(float64(count))
}

func IncCatalogReload(source, status string) {
	CatalogReloadsTotal.WithLabelValues(source, status).Inc()
}

func IncEntityLookup(kind, source, status string) {
	EntityLookupsTotal.WithLabelValues(kind, source, status).Inc()
}

func IncSinkWrite(sink, status string) {
	ExecutionSinkWritesTotal.WithLabelValues(sink, status).Inc()
}

func IncSchedulerRun(job, status string) {
	SchedulerRunsTotal.WithLabelValues(job, status).Inc()
}

func IncIdempotencyCheck(result string) {
	IdempotencyChecksTotal.WithLabelValues(result).Inc()
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}
