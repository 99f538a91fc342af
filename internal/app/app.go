package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/princebhatt03/UrbanCart/internal/auth"
	"github.com/princebhatt03/UrbanCart/internal/config"
	"github.com/princebhatt03/UrbanCart/internal/event"
	handler "github.com/princebhatt03/UrbanCart/internal/handler/http"
	"github.com/princebhatt03/UrbanCart/internal/oauth"
	"github.com/princebhatt03/UrbanCart/internal/repository/postgres"
	redisrepo "github.com/princebhatt03/UrbanCart/internal/repository/redis"
	"github.com/princebhatt03/UrbanCart/internal/service"
	storagelocal "github.com/princebhatt03/UrbanCart/internal/storage/local"
	"github.com/princebhatt03/UrbanCart/internal/ws"
	"github.com/princebhatt03/UrbanCart/migrations"
	"github.com/princebhatt03/UrbanCart/pkg/database"
	"github.com/princebhatt03/UrbanCart/pkg/health"
	"github.com/princebhatt03/UrbanCart/pkg/httpclient"
	pkgkafka "github.com/princebhatt03/UrbanCart/pkg/kafka"
	"github.com/princebhatt03/UrbanCart/pkg/middleware"
	"github.com/princebhatt03/UrbanCart/pkg/tracing"
)

// consumerGroup identifies the websocket fanout consumers. Every server
// instance shares the group so each catalog event is fanned out once
// per cluster, not once per instance.
const consumerGroup = "urbancart-ws-fanout"

// idempotencyTTL bounds how long processed event IDs are remembered by
// the fanout consumers.
const idempotencyTTL = 24 * time.Hour

// App wires together all dependencies and runs the server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	consumers      []*pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	hub            *ws.Hub
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "urbancart",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "urbancart")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Initialize Redis client for cart storage.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("port", cfg.RedisPort),
		slog.Int("db", cfg.RedisDB),
	)

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Websocket hub plus the Kafka consumers that feed it. The direct
	// broadcast on catalog mutations covers this instance; the consumers
	// cover events published by other instances or services.
	hub := ws.NewHub(logger)

	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
	idempotency := pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
	bridge := ws.CatalogBridge(hub, logger)

	catalogTopics := []string{
		event.TopicCatalogItemCreated,
		event.TopicCatalogItemUpdated,
		event.TopicCatalogItemDeleted,
	}
	consumers := make([]*pkgkafka.Consumer, 0, len(catalogTopics))
	for _, topic := range catalogTopics {
		consumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  consumerGroup,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}, pkgkafka.IdempotentHandler(topic, consumerGroup, idempotency, bridge, logger), logger)
		consumers = append(consumers, consumer.WithDLQ(dlq))
	}

	// Image storage.
	store, err := storagelocal.New(cfg.UploadDir)
	if err != nil {
		redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init upload storage: %w", err)
	}

	// Google OAuth provider behind a circuit breaker.
	breakerClient := httpclient.NewBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultBreakerConfig("google-oauth"),
		logger,
	)
	googleProvider := oauth.NewGoogleProvider(oauth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		AuthURL:      cfg.GoogleAuthURL,
		TokenURL:     cfg.GoogleTokenURL,
		UserInfoURL:  cfg.GoogleUserInfoURL,
	}, breakerClient, logger)

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTLocalExpiry, cfg.JWTFederatedExpiry)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	identityRepo := postgres.NewIdentityRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)
	cartRepo := redisrepo.NewCartRepository(redisClient, cfg.CartTTL())
	eventProducer := event.NewProducer(producer, logger)

	userService := service.NewUserService(identityRepo, hasher, jwtManager, googleProvider, eventProducer, logger)
	cartService := service.NewCartService(cartRepo, catalogRepo, logger)
	catalogService := service.NewCatalogService(catalogRepo, store, eventProducer, hub, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(
		userService,
		cartService,
		catalogService,
		identityRepo,
		jwtManager,
		googleProvider,
		store,
		hub,
		healthHandler,
		logger,
		handler.RouterConfig{
			CORS:              middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins},
			UploadDir:         store.Dir(),
			PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
		},
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		consumers:      consumers,
		dlq:            dlq,
		hub:            hub,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the hub, the fanout consumers and the HTTP server, then
// blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run()

	consumerCtx, stopConsumers := context.WithCancel(ctx)
	defer stopConsumers()
	for _, consumer := range a.consumers {
		go func(c *pkgkafka.Consumer) {
			if err := c.Start(consumerCtx); err != nil {
				a.logger.Error("catalog fanout consumer stopped",
					slog.String("error", err.Error()),
				)
			}
		}(consumer)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	stopConsumers()
	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Websocket hub (disconnect clients)
// 4. Kafka producer and DLQ producer
// 5. Redis client
// 6. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Disconnect websocket clients.
	a.hub.Stop()

	// 4. Close Kafka producers.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if err := a.dlq.Close(); err != nil {
		a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 5. Close Redis client.
	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 6. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
