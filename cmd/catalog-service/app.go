package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"ruleflow/internal/config"
	"ruleflow/internal/constants"
	"ruleflow/internal/logger"
	"ruleflow/internal/management"
	"ruleflow/pkg/bootstrap"
	"ruleflow/pkg/cel"
	"ruleflow/pkg/health"
	"ruleflow/pkg/metrics"
	"ruleflow/pkg/ratelimit"
)

type App struct {
	*bootstrap.Base
	dbConnector *bootstrap.DatabaseConnector
	db          *sql.DB
	mongoClient *mongo.Client
	limiter     *ratelimit.Limiter
	router      *gin.Engine
	server      *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.InitTracing(constants.ServiceNameCatalog); err != nil {
		return err
	}

	if err := a.InitBroker(constants.ServiceNameCatalog, false); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := a.initRouter(ctx); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.server = bootstrap.NewServer(a.Config.Server, a.router)
	return nil
}

// initDatabases connects MongoDB, which holds the catalog, and PostgreSQL,
// which holds versions and the audit trail. PostgreSQL is optional.
func (a *App) initDatabases(ctx context.Context) error {
	client, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return err
	}
	if client == nil {
		return fmt.Errorf("database.mongodb.uri is required")
	}
	a.mongoClient = client

	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	if db == nil {
		a.Logger.Warnw("PostgreSQL not configured, versioning and audit disabled")
	}
	a.db = db
	return nil
}

func (a *App) initRouter(ctx context.Context) error {
	mongoDB, err := a.dbConnector.MongoDatabase(ctx, a.mongoClient)
	if err != nil {
		return err
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return err
	}

	opts := []management.ServiceOption{management.WithFilterValidator(evaluator)}
	if a.db != nil {
		opts = append(opts,
			management.WithVersioning(management.NewVersionStore(a.db)),
			management.WithAudit(management.NewAuditLogger(a.db)),
		)
	}
	if a.Producer != nil && a.Config.Broker.Kafka.ConfigUpdateTopic != "" {
		opts = append(opts, management.WithConfigEvents(
			management.NewConfigEventProducer(a.Producer, a.Config.Broker.Kafka.ConfigUpdateTopic)))
		a.Logger.Infow("Config event producer initialized", "topic", a.Config.Broker.Kafka.ConfigUpdateTopic)
	}

	svc := management.NewService(management.NewRepository(mongoDB), a.Logger, opts...)

	metrics.RegisterCatalogMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	if a.Producer != nil {
		metrics.RegisterBrokerMetrics()
	}

	checks := health.NewCheckerRegistry()
	checks.Register(health.NewMongoDBChecker(a.mongoClient))
	if a.db != nil {
		checks.Register(health.NewPostgreSQLChecker(a.db))
	}
	if a.Producer != nil {
		checks.RegisterOptional(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	}

	router := bootstrap.NewRouter(a.Config, a.Logger, constants.ServiceNameCatalog, checks)

	if a.Config.Management.RateLimit.Enabled {
		rl := ratelimit.FromConfig(a.Config.Management.RateLimit)
		a.limiter = ratelimit.NewLimiter(rl)
		router.Use(a.limiter.Middleware())
		a.Logger.Infow("Rate limiting enabled", "rps", rl.RPS, "burst", rl.Burst)
	}

	management.NewHandler(svc, a.Logger).RegisterRoutes(router)

	a.router = router
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.RunCleanup(ctx)
			return nil
		})
	}

	g.Go(func() error {
		return bootstrap.Serve(ctx, a.server, a.Logger)
	})

	err := g.Wait()
	if shutdownErr := a.Shutdown(ctx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
	defer cancel()

	return a.Base.Shutdown(shutdownCtx, func(ctx context.Context) []error {
		return a.dbConnector.ShutdownDatabases(ctx, nil, a.db, a.mongoClient)
	})
}
