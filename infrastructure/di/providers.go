package di

import (
	"context"
	"fmt"
	"time"

	"astraea-backend/application/commands"
	cmdbus "astraea-backend/application/commands/bus"
	cmdhandlers "astraea-backend/application/commands/handlers"
	"astraea-backend/application/ports"
	"astraea-backend/application/queries"
	querybus "astraea-backend/application/queries/bus"
	queryhandlers "astraea-backend/application/queries/handlers"
	"astraea-backend/application/services"
	domainconfig "astraea-backend/domain/config"
	domainservices "astraea-backend/domain/services"
	"astraea-backend/infrastructure/acl"
	"astraea-backend/infrastructure/config"
	"astraea-backend/infrastructure/messaging"
	"astraea-backend/infrastructure/messaging/eventbridge"
	dynamopersistence "astraea-backend/infrastructure/persistence/dynamodb"
	"astraea-backend/infrastructure/persistence/memory"
	"astraea-backend/infrastructure/persistence/sqlite"
	"astraea-backend/pkg/auth"
	apperrors "astraea-backend/pkg/errors"
	"astraea-backend/pkg/extensions"
	"astraea-backend/pkg/observability"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// metricsNamespace prefixes every Prometheus metric and CloudWatch datum.
const metricsNamespace = "astraea"

// Container holds every wired component. Entry points build one via
// InitializeContainer and read what they need from it.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Storage *Storage

	Cache     ports.Cache
	Ephemeris ports.EphemerisProvider

	Orchestrator *domainservices.AnalysisOrchestrator
	Natal        *domainservices.NatalService
	Synastry     *domainservices.SynastryService
	Composite    *domainservices.CompositeService

	AnalysisService *services.AnalysisService

	// Result-bearing command handlers stay reachable directly: the bus
	// interface drops return values, and the REST and CLI surfaces need them.
	GenerateHandler   *cmdhandlers.GenerateAnalysisHandler
	BulkDeleteHandler *cmdhandlers.BulkDeleteAnalysesHandler
	PurgeHandler      *cmdhandlers.PurgeExpiredAnalysesHandler

	CommandBus *cmdbus.CommandBus
	QueryBus   *querybus.QueryBus

	Metrics      *observability.Collector
	CloudWatch   *observability.CloudWatchPublisher
	Tracer       *observability.Tracer
	RateLimiter  auth.RateLimiter
	ErrorHandler *apperrors.ErrorHandler
}

// Start launches background work owned by the container. Only the DynamoDB
// driver has any: the outbox relay.
func (c *Container) Start(ctx context.Context) {
	if c.Storage != nil && c.Storage.Outbox != nil {
		c.Storage.Outbox.Start(ctx)
	}
}

// Shutdown stops background workers and releases storage handles. Safe to
// call once at process exit.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Storage != nil && c.Storage.Outbox != nil {
		c.Storage.Outbox.Stop()
	}
	if closer, ok := c.Cache.(interface{ Close() }); ok {
		closer.Close()
	}
	if closer, ok := c.RateLimiter.(interface{ Close() }); ok {
		closer.Close()
	}

	var firstErr error
	if c.Storage != nil && c.Storage.SQLite != nil {
		if err := c.Storage.SQLite.Close(); err != nil {
			firstErr = fmt.Errorf("close sqlite store: %w", err)
		}
	}

	_ = c.Logger.Sync()
	return firstErr
}

// ProvideLogger creates the process logger. Production gets JSON output at
// the configured level; everything else gets the development console encoder.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil && cfg.LogLevel != "" {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// ProvideScoringConfig supplies the tuning values behind all chart scoring.
func ProvideScoringConfig() *domainconfig.ScoringConfig {
	return domainconfig.DefaultScoringConfig()
}

// ProvideOrchestrator creates the full analysis pipeline.
func ProvideOrchestrator(scoring *domainconfig.ScoringConfig) *domainservices.AnalysisOrchestrator {
	return domainservices.NewAnalysisOrchestrator(scoring)
}

// ProvideNatalService creates the single-chart summarizer.
func ProvideNatalService(scoring *domainconfig.ScoringConfig) *domainservices.NatalService {
	return domainservices.NewNatalService(scoring)
}

// ProvideSynastryService creates the inter-chart aspect service.
func ProvideSynastryService(scoring *domainconfig.ScoringConfig) *domainservices.SynastryService {
	return domainservices.NewSynastryService(scoring)
}

// ProvideCompositeService creates the midpoint chart service.
func ProvideCompositeService(scoring *domainconfig.ScoringConfig) *domainservices.CompositeService {
	return domainservices.NewCompositeService(scoring)
}

// Storage bundles the persistence components built for the configured
// driver. Repository, event store, event bus, and lock always come from the
// same driver so their consistency assumptions hold together.
type Storage struct {
	AnalysisRepo ports.AnalysisRepository
	EventStore   ports.EventStore
	EventBus     ports.EventBus
	Lock         ports.UnitLock

	// Outbox is non-nil only on the DynamoDB driver, where publishing is
	// decoupled from the request path.
	Outbox *dynamopersistence.OutboxProcessor

	// SQLite is non-nil only on the sqlite driver, kept for Close and Ping.
	SQLite *sqlite.Store

	// DynamoClient is non-nil only on the dynamodb driver. The distributed
	// rate limiter shares it.
	DynamoClient *awsdynamodb.Client
}

// ProvideStorage builds the persistence stack for cfg.PersistenceDriver.
//
// memory and sqlite deliver events in-process, persisting each batch to the
// driver's event store before dispatch. dynamodb writes events to the outbox
// and relays them to EventBridge from a background processor, so a request
// never blocks on the bus.
func ProvideStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observability.Collector, cw *observability.CloudWatchPublisher) (*Storage, error) {
	switch cfg.PersistenceDriver {
	case config.DriverMemory:
		retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
		eventStore := memory.NewEventStore()
		return &Storage{
			AnalysisRepo: memory.NewAnalysisStore(retention),
			EventStore:   eventStore,
			EventBus:     instrumentEventBus(messaging.NewPersistingEventBus(messaging.NewLocalEventBus(logger), eventStore, logger), metrics),
			Lock:         memory.NewUnitLock(),
		}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		eventStore := sqlite.NewEventStore(store, logger)
		return &Storage{
			AnalysisRepo: sqlite.NewAnalysisRepository(store, logger),
			EventStore:   eventStore,
			EventBus:     instrumentEventBus(messaging.NewPersistingEventBus(messaging.NewLocalEventBus(logger), eventStore, logger), metrics),
			// A single process owns a sqlite file, so the in-process lock is
			// enough to serialize duplicate generations.
			Lock:   memory.NewUnitLock(),
			SQLite: store,
		}, nil

	case config.DriverDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		if cfg.EnableTracing {
			awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
		}

		client := awsdynamodb.NewFromConfig(awsCfg)
		eventStore := dynamopersistence.NewEventStore(client, cfg.DynamoDBTable)

		publisher := eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger)
		outbox := dynamopersistence.NewOutboxProcessor(eventStore, relayPublisher(publisher, cw), logger)

		return &Storage{
			AnalysisRepo: dynamopersistence.NewAnalysisRepository(client, cfg.DynamoDBTable, cfg.IndexName, logger),
			EventStore:   eventStore,
			EventBus:     instrumentEventBus(messaging.NewOutboxEventBus(eventStore, logger), metrics),
			Lock:         dynamopersistence.NewDistributedLock(client, cfg.DynamoDBTable, logger),
			Outbox:       outbox,
			DynamoClient: client,
		}, nil

	default:
		return nil, fmt.Errorf("unknown persistence driver %q", cfg.PersistenceDriver)
	}
}

// ProvideEphemeris creates the external chart-position provider, or nil when
// the service runs on caller-supplied positions only.
func ProvideEphemeris(cfg *config.Config, logger *zap.Logger, metrics *observability.Collector) ports.EphemerisProvider {
	if !cfg.Ephemeris.Enabled {
		return nil
	}
	return instrumentEphemeris(acl.NewEphemerisAdapter(cfg.Ephemeris, logger), metrics)
}

// ProvideHookManager creates the extension hook registry with the built-in
// lifecycle observers attached.
func ProvideHookManager(
	metrics *observability.Collector,
	cw *observability.CloudWatchPublisher,
	logger *zap.Logger,
) *extensions.HookManager {
	hooks := extensions.NewHookManager()
	registerLifecycleHooks(hooks, metrics, cw, logger)
	return hooks
}

// ProvideCache creates the read-model cache. Hits and misses are counted
// when metrics are on.
func ProvideCache(metrics *observability.Collector) ports.Cache {
	return newInstrumentedCache(NewMemoryCache(), metrics)
}

// ProvideAnalysisService wires the application service around the domain
// pipeline and the configured storage.
func ProvideAnalysisService(
	orchestrator *domainservices.AnalysisOrchestrator,
	storage *Storage,
	ephemeris ports.EphemerisProvider,
	hooks *extensions.HookManager,
	logger *zap.Logger,
) *services.AnalysisService {
	return services.NewAnalysisService(
		orchestrator,
		storage.AnalysisRepo,
		storage.EventBus,
		storage.Lock,
		ephemeris,
		hooks,
		logger,
	)
}

// ProvideGenerateHandler creates the generate-analysis command handler.
func ProvideGenerateHandler(service *services.AnalysisService) *cmdhandlers.GenerateAnalysisHandler {
	return cmdhandlers.NewGenerateAnalysisHandler(service)
}

// ProvideBulkDeleteHandler creates the bulk delete command handler.
func ProvideBulkDeleteHandler(storage *Storage, logger *zap.Logger) *cmdhandlers.BulkDeleteAnalysesHandler {
	return cmdhandlers.NewBulkDeleteAnalysesHandler(storage.AnalysisRepo, storage.EventStore, storage.EventBus, logger)
}

// ProvidePurgeHandler creates the retention purge handler.
func ProvidePurgeHandler(storage *Storage, logger *zap.Logger) *cmdhandlers.PurgeExpiredAnalysesHandler {
	return cmdhandlers.NewPurgeExpiredAnalysesHandler(storage.AnalysisRepo, logger)
}

// CommandHandlerAdapter adapts typed command handlers to the bus interface.
type CommandHandlerAdapter struct {
	handler func(context.Context, cmdbus.Command) error
}

func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd cmdbus.Command) error {
	return a.handler(ctx, cmd)
}

// ProvideCommandBus registers every command the system accepts. Handlers
// that return results are also held on the container; the bus path is for
// callers that only need completion, such as the event worker.
func ProvideCommandBus(
	generateHandler *cmdhandlers.GenerateAnalysisHandler,
	bulkDeleteHandler *cmdhandlers.BulkDeleteAnalysesHandler,
	purgeHandler *cmdhandlers.PurgeExpiredAnalysesHandler,
	storage *Storage,
	cache ports.Cache,
	logger *zap.Logger,
) (*cmdbus.CommandBus, error) {
	commandBus := cmdbus.NewCommandBusWithMiddleware(cmdbus.LoggingMiddleware(logger))

	err := commandBus.Register(commands.GenerateAnalysisCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd cmdbus.Command) error {
			generateCmd, ok := cmd.(commands.GenerateAnalysisCommand)
			if !ok {
				return fmt.Errorf("invalid command type %T", cmd)
			}
			_, err := generateHandler.Handle(ctx, generateCmd)
			return err
		},
	})
	if err != nil {
		return nil, err
	}

	deleteHandler := cmdhandlers.NewDeleteAnalysisHandler(storage.AnalysisRepo, storage.EventStore, storage.EventBus, logger)
	err = commandBus.Register(commands.DeleteAnalysisCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd cmdbus.Command) error {
			deleteCmd, ok := cmd.(commands.DeleteAnalysisCommand)
			if !ok {
				return fmt.Errorf("invalid command type %T", cmd)
			}
			if err := deleteHandler.Handle(ctx, deleteCmd); err != nil {
				return err
			}
			// Drop the cached read so the delete is visible immediately.
			_ = cache.Delete(ctx, fmt.Sprintf("analysis:%s:%s", deleteCmd.UserID, deleteCmd.AnalysisID))
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	err = commandBus.Register(commands.BulkDeleteAnalysesCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd cmdbus.Command) error {
			bulkCmd, ok := cmd.(commands.BulkDeleteAnalysesCommand)
			if !ok {
				return fmt.Errorf("invalid command type %T", cmd)
			}
			_, err := bulkDeleteHandler.Handle(ctx, bulkCmd)
			return err
		},
	})
	if err != nil {
		return nil, err
	}

	err = commandBus.Register(commands.PurgeExpiredAnalysesCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd cmdbus.Command) error {
			purgeCmd, ok := cmd.(commands.PurgeExpiredAnalysesCommand)
			if !ok {
				return fmt.Errorf("invalid command type %T", cmd)
			}
			_, err := purgeHandler.Handle(ctx, purgeCmd)
			return err
		},
	})
	if err != nil {
		return nil, err
	}

	return commandBus, nil
}

// QueryHandlerAdapter adapts typed query handlers to the bus interface.
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// ProvideQueryBus registers every read the system serves. List results are
// cached; single-analysis reads cache inside their handler. All handlers are
// measured when metrics are on.
func ProvideQueryBus(
	storage *Storage,
	orchestrator *domainservices.AnalysisOrchestrator,
	natal *domainservices.NatalService,
	cache ports.Cache,
	metrics *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()

	instrument := func(h querybus.QueryHandler) querybus.QueryHandler { return h }
	if metrics != nil {
		instrument = querybus.NewMetricsMiddleware(&queryMetrics{collector: metrics}).Wrap
	}
	caching := querybus.NewCachingMiddleware(cache, cfg.CacheTTL)

	getHandler := queries.NewGetAnalysisHandler(storage.AnalysisRepo, cache)
	err := queryBus.Register(queries.GetAnalysisQuery{}, instrument(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			getQuery, ok := query.(queries.GetAnalysisQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type %T", query)
			}
			return getHandler.Handle(ctx, getQuery)
		},
	}))
	if err != nil {
		return nil, err
	}

	listHandler := queryhandlers.NewListAnalysesHandler(storage.AnalysisRepo, logger)
	err = queryBus.Register(queries.ListAnalysesQuery{}, caching.Wrap(instrument(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			listQuery, ok := query.(queries.ListAnalysesQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type %T", query)
			}
			return listHandler.Handle(ctx, listQuery)
		},
	})))
	if err != nil {
		return nil, err
	}

	previewHandler := queryhandlers.NewPreviewCompatibilityHandler(orchestrator, logger)
	err = queryBus.Register(queries.PreviewCompatibilityQuery{}, instrument(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			previewQuery, ok := query.(queries.PreviewCompatibilityQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type %T", query)
			}
			return previewHandler.Handle(ctx, previewQuery)
		},
	}))
	if err != nil {
		return nil, err
	}

	natalHandler := queryhandlers.NewNatalSummaryHandler(natal, logger)
	err = queryBus.Register(queries.NatalSummaryQuery{}, instrument(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			natalQuery, ok := query.(queries.NatalSummaryQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type %T", query)
			}
			return natalHandler.Handle(ctx, natalQuery)
		},
	}))
	if err != nil {
		return nil, err
	}

	return queryBus, nil
}

// ProvideCollector creates the Prometheus collector, or nil when metrics are
// off. Decorators and observe helpers tolerate the nil.
func ProvideCollector(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector(metricsNamespace)
}

// ProvideCloudWatch creates the CloudWatch metrics publisher. Outside Lambda
// it stays a no-op: scrape-based metrics cover long-lived processes.
func ProvideCloudWatch(ctx context.Context, cfg *config.Config, logger *zap.Logger) *observability.CloudWatchPublisher {
	if !cfg.IsLambda || !cfg.EnableMetrics {
		return observability.NewCloudWatchPublisher(nil, metricsNamespace, logger)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Warn("cloudwatch metrics disabled", zap.Error(err))
		return observability.NewCloudWatchPublisher(nil, metricsNamespace, logger)
	}
	return observability.NewCloudWatchPublisher(awscloudwatch.NewFromConfig(awsCfg), metricsNamespace, logger)
}

// ProvideTracer creates the X-Ray tracer.
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(metricsNamespace, cfg.EnableTracing)
}

// ProvideRateLimiter picks the limiter implementation. With DynamoDB
// available the window counters are shared across instances; otherwise each
// process enforces its own token bucket.
func ProvideRateLimiter(cfg *config.Config, storage *Storage, logger *zap.Logger) auth.RateLimiter {
	if storage.DynamoClient != nil {
		return auth.NewDistributedRateLimiter(storage.DynamoClient, cfg.DynamoDBTable, cfg.RateLimit.RequestsPerMinute, logger)
	}
	return auth.NewTokenBucketLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
}

// ProvideErrorHandler creates the HTTP error responder. Development builds
// include error detail in responses.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, cfg.IsDevelopment())
}
