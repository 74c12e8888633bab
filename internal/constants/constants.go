package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixTrigger = "trigger:"
	CacheKeyPrefixEntity  = "entity:"
)

const (
	DefaultInputTopic  = "rule_triggers"
	DefaultOutputTopic = "rule_executions"
)

const (
	DefaultMongoDBName = "ruleflow"
)

const (
	CollectionRules     = "rules"
	CollectionActions   = "actions"
	CollectionCustomers = "customers"
	CollectionOrders    = "orders"
	CollectionProducts  = "products"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit       = 100
	MaxLimit           = 1000
	DefaultTruncateLen = 100
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	FallbackAllow  = "allow"
	FallbackReject = "reject"
)

const (
	ServiceNameEngine  = "engine-service"
	ServiceNameCatalog = "catalog-service"
)

const (
	CatalogSourceMongo = "mongodb"
	CatalogSourceFile  = "file"
)

const (
	WildcardEventType = "*"
)
