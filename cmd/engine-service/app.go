package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"ruleflow/internal/catalog"
	"ruleflow/internal/config"
	"ruleflow/internal/config_handler"
	"ruleflow/internal/constants"
	"ruleflow/internal/delivery"
	"ruleflow/internal/dispatch"
	"ruleflow/internal/engine"
	"ruleflow/internal/entity"
	"ruleflow/internal/execmetrics"
	"ruleflow/internal/idempotency"
	"ruleflow/internal/logger"
	"ruleflow/internal/rulecontext"
	"ruleflow/internal/scheduler"
	"ruleflow/internal/sink"
	"ruleflow/pkg/bootstrap"
	"ruleflow/pkg/circuitbreaker"
	"ruleflow/pkg/health"
	"ruleflow/pkg/metrics"
	"ruleflow/pkg/models"
)

type App struct {
	*bootstrap.Base
	dbConnector *bootstrap.DatabaseConnector

	redisClient *redis.Client
	db          *sql.DB
	mongoClient *mongo.Client
	mongoDB     *mongo.Database

	catalog     *catalog.Service
	fileSource  *catalog.FileSource
	statsStore  catalog.StatsStore
	entities    entity.Store
	invalidator entity.Invalidator
	intake      *engine.Intake
	scheduler   *scheduler.Scheduler
	flusher     *execmetrics.Flusher
	history     engine.History

	router *gin.Engine
	server *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.InitTracing(constants.ServiceNameEngine); err != nil {
		return err
	}

	if err := a.InitBroker(constants.ServiceNameEngine, true); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := a.initCatalog(ctx); err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}

	a.initEntities()

	if err := a.initEngine(); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	a.initRouter()
	a.server = bootstrap.NewServer(a.Config.Server, a.router)
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redisClient = rdb

	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	client, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return err
	}
	if client != nil {
		a.mongoClient = client
		a.mongoDB, err = a.dbConnector.MongoDatabase(ctx, client)
		if err != nil {
			return err
		}
	}
	return nil
}

// initCatalog picks the rule source and performs the first load. A failed
// first load is fatal; later reload failures keep the previous catalog.
func (a *App) initCatalog(ctx context.Context) error {
	var source catalog.Source
	switch a.Config.Catalog.Source {
	case constants.CatalogSourceFile:
		if a.Config.Catalog.FilePath == "" {
			return fmt.Errorf("catalog.file_path is required for the file source")
		}
		a.fileSource = catalog.NewFileSource(a.Config.Catalog.FilePath, a.Logger)
		source = a.fileSource
	case constants.CatalogSourceMongo, "":
		if a.mongoDB == nil {
			return fmt.Errorf("database.mongodb.uri is required for the mongodb catalog source")
		}
		repo := catalog.NewMongoRepository(a.mongoDB)
		a.statsStore = repo
		source = repo
	default:
		return fmt.Errorf("unknown catalog source %q", a.Config.Catalog.Source)
	}

	svc, err := catalog.NewService(source, a.Config.Catalog, a.Logger)
	if err != nil {
		return err
	}
	if err := svc.ReloadRules(ctx, true); err != nil {
		return err
	}
	a.catalog = svc
	return nil
}

// initEntities stacks the entity store: MongoDB, behind a circuit breaker,
// behind a Redis read-through cache.
func (a *App) initEntities() {
	if a.mongoDB == nil {
		a.Logger.Warnw("MongoDB not configured, entity lookups disabled")
		return
	}

	var store entity.Store = entity.NewMongoStore(a.mongoDB)
	if a.Config.CircuitBreaker.Enabled {
		store = entity.NewBreakerStore(store, circuitbreaker.FromConfig("mongo-entities", a.Config.CircuitBreaker))
	}
	if a.redisClient != nil {
		cached := entity.NewCachedStore(store, a.redisClient, a.Config.Entity.CacheTTL, a.Logger)
		a.invalidator = cached
		store = cached
	}
	a.entities = store
}

func (a *App) initEngine() error {
	deps := delivery.Deps{
		MongoDB:  a.mongoDB,
		Producer: a.Producer,
		Logger:   a.Logger,
	}
	if a.redisClient != nil {
		deps.Redis = a.redisClient
	}
	registry := delivery.NewRegistryFromConfig(a.Config, deps)
	dispatcher := dispatch.NewDispatcher(registry, a.Config.Engine.ActionTimeout, a.Logger)

	sinks, err := sink.NewFromConfig(a.Config.Engine.Sinks, sink.Deps{
		DB:       a.db,
		Producer: a.Producer,
		Topic:    a.Config.Broker.Kafka.OutputTopic,
		Source:   constants.ServiceNameEngine,
		Logger:   a.Logger,
	})
	if err != nil {
		return err
	}
	if a.db != nil {
		a.history = sink.NewPostgresSink(a.db)
	}

	var contexts *rulecontext.Resolver
	if a.entities != nil {
		contexts = rulecontext.NewResolver(entity.NewLookup(a.entities), a.Logger)
	} else {
		contexts = rulecontext.NewResolver(nil, a.Logger)
	}

	stats := execmetrics.New(a.Config.Engine.MetricsSmoothing)
	if a.statsStore != nil {
		a.flusher = execmetrics.NewFlusher(stats, a.statsStore, a.Config.Engine.StatsFlushInterval, a.Logger)
	}

	eng := engine.New(a.catalog, contexts, dispatcher, sinks, stats, a.Config.Engine, a.Logger)

	var guard *idempotency.Guard
	if a.redisClient != nil {
		store := idempotency.NewBreakerStore(idempotency.NewRedisStore(a.redisClient), a.Config.CircuitBreaker)
		guard = idempotency.NewGuard(store, a.Config.Idempotency, a.Logger)
	} else if a.Config.Idempotency.Enabled {
		a.Logger.Warnw("Idempotency enabled but Redis not configured, duplicate triggers will execute")
	}
	a.intake = engine.NewIntake(eng, guard)

	sched, err := scheduler.New(a.Config.Scheduler.Jobs, a.intake.Fire, a.Logger)
	if err != nil {
		return err
	}
	a.scheduler = sched
	return nil
}

func (a *App) initRouter() {
	metrics.RegisterEngineMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	metrics.RegisterCatalogMetrics()
	if a.Producer != nil {
		metrics.RegisterBrokerMetrics()
	}

	checks := health.NewCheckerRegistry()
	checks.Register(health.NewCheckFunc("catalog", func(ctx context.Context) error {
		if a.catalog.LoadedAt().IsZero() {
			return errors.New("catalog not loaded")
		}
		return nil
	}))
	if a.mongoClient != nil {
		checks.Register(health.NewMongoDBChecker(a.mongoClient))
	}
	if a.redisClient != nil {
		checks.RegisterOptional(health.NewRedisChecker(a.redisClient))
	}
	if a.db != nil {
		checks.RegisterOptional(health.NewPostgreSQLChecker(a.db))
	}
	if a.Producer != nil {
		checks.RegisterOptional(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	}

	router := bootstrap.NewRouter(a.Config, a.Logger, constants.ServiceNameEngine, checks)
	engine.NewHandler(a.intake, a.history, a.Logger).RegisterRoutes(router)
	a.router = router
}

// Run starts every trigger source and background loop and blocks until ctx
// is done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bootstrap.Serve(ctx, a.server, a.Logger)
	})

	g.Go(func() error {
		return untilCanceled(a.catalog.StartReloader(ctx))
	})

	if a.fileSource != nil {
		g.Go(func() error {
			return untilCanceled(a.fileSource.Watch(ctx, func(ctx context.Context) error {
				return a.catalog.ReloadRules(ctx, true)
			}))
		})
	}

	g.Go(func() error {
		return untilCanceled(a.scheduler.Run(ctx))
	})

	if a.flusher != nil {
		g.Go(func() error {
			return untilCanceled(a.flusher.Run(ctx))
		})
	}

	if a.Consumer != nil {
		kafka := a.Config.Broker.Kafka
		if kafka.InputTopic != "" {
			g.Go(func() error {
				a.Logger.InfowCtx(ctx, "Consuming triggers", "topic", kafka.InputTopic)
				return untilCanceled(a.Consumer.Consume(ctx, kafka.InputTopic, a.intake.HandleTriggerEnvelope))
			})
		}
		if kafka.ConfigUpdateTopic != "" {
			updates := config_handler.NewHandler(models.ServiceTypeCatalog, a.catalog, a.Logger)
			g.Go(func() error {
				return untilCanceled(a.Consumer.Consume(ctx, kafka.ConfigUpdateTopic, updates.HandleConfigUpdateEvent))
			})
		}
	}

	if a.Config.Entity.WatchChanges && a.mongoDB != nil {
		watcher := entity.NewWatcher(a.mongoDB, a.invalidator, a.Logger)
		g.Go(func() error {
			return watcher.Run(ctx, func(ctx context.Context, trigger *models.Trigger) error {
				return a.intake.Fire(ctx, *trigger)
			})
		})
	}

	err := g.Wait()
	if shutdownErr := a.Shutdown(ctx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

func untilCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
	defer cancel()

	return a.Base.Shutdown(shutdownCtx, func(ctx context.Context) []error {
		if a.flusher != nil {
			a.flusher.Flush(ctx)
		}
		return a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.db, a.mongoClient)
	})
}
