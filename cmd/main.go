package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/djdiptayan1/HRone/internal/metrics"
	"github.com/djdiptayan1/HRone/internal/repository"
	"github.com/djdiptayan1/HRone/internal/service"
	"github.com/djdiptayan1/HRone/internal/session"
	"github.com/djdiptayan1/HRone/internal/transport/grpc"
	transport "github.com/djdiptayan1/HRone/internal/transport/http"
	"github.com/djdiptayan1/HRone/internal/transport/http/handler"
	"github.com/djdiptayan1/HRone/internal/transport/http/middleware"
	shopKafka "github.com/djdiptayan1/HRone/internal/transport/kafka"
	"github.com/djdiptayan1/HRone/migrations"
	"github.com/djdiptayan1/HRone/pkg/config"
	"github.com/djdiptayan1/HRone/pkg/db"
	"github.com/djdiptayan1/HRone/pkg/kafka"
	outbox "github.com/djdiptayan1/HRone/pkg/outbox/repository"
	"github.com/djdiptayan1/HRone/pkg/outbox/worker"
	"github.com/djdiptayan1/HRone/pkg/utils"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(config.LoggerConfig{
		Level:   cfg.Logger.Level,
		Env:     cfg.Env,
		Service: cfg.Tracing.ServiceName,
	})
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	shutdownTracer := func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		tp, err := utils.InitTracer(ctx, utils.TracerConfig{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			Environment: cfg.Env,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			logger.Fatal("Error init tracer", zap.Error(err))
		}
		shutdownTracer = tp.Shutdown
	}

	if cfg.Postgres.Migrate {
		if err := db.Migrate(cfg.Postgres.URL, migrations.FS); err != nil {
			logger.Fatal("Error applying migrations", zap.Error(err))
		}
	}

	pool, err := db.NewPostgresDB(ctx, db.PoolConfig{
		URL:      cfg.Postgres.URL,
		MaxConns: cfg.Postgres.MaxConns,
		MinConns: cfg.Postgres.MinConns,
	})
	if err != nil {
		logger.Fatal("Error creating postgres pool", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler(reg))

	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Metrics server listening", zap.String("addr", cfg.Metrics.Port))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics serving failed", zap.Error(err))
		}
	}()

	productRepository := repository.NewProductRepository(pool, logger)
	orderRepository := repository.NewOrderRepository(pool, logger)
	outboxRepository := outbox.NewOutboxRepository(pool, logger)

	productCache := service.NewProductCache(rdb, cfg.Redis.CacheTTL, logger)
	productService := service.NewCachedProductService(
		service.NewProductService(productRepository, outboxRepository, pool, logger, cfg.Kafka.ProductTopic),
		productCache,
		logger,
	)
	orderService := service.NewOrderService(
		pool,
		logger,
		orderRepository,
		productRepository,
		outboxRepository,
		m,
		cfg.Kafka.OrderTopic,
	)

	codec, err := session.NewTokenCodec(cfg.Auth.SecretKey, cfg.Auth.Algorithm, nil)
	if err != nil {
		logger.Fatal("Error creating token codec", zap.Error(err))
	}
	sessions := session.NewManager(session.NewRegistry(cfg.Auth.SessionTTL(), nil), codec, m, logger)

	var kafkaProducer kafka.Producer
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		if err != nil {
			logger.Fatal("Error creating kafka producer", zap.Error(err))
		}
		kafkaProducer = kafka.WithBreaker(producer, logger)

		outboxProcessor := worker.NewOutboxProcessor(pool, outboxRepository, kafkaProducer, logger)
		go outboxProcessor.Start(ctx)

		consumer := shopKafka.NewConsumer(productCache, logger)
		go func() {
			topics := []string{cfg.Kafka.OrderTopic, cfg.Kafka.ProductTopic}
			if err := consumer.Start(ctx, cfg.Kafka.Brokers, cfg.Kafka.GroupID, topics); err != nil {
				logger.Error("Cache invalidation consumer stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("Kafka disabled, outbox events stay unpublished")
	}

	healthServer := grpc.NewHealthServer(map[string]grpc.Check{
		"postgres": pool.Ping,
		"redis": func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}, cfg.GRPC.HealthInterval, logger)
	go healthServer.Watch(ctx)

	lis, err := net.Listen("tcp", cfg.GRPC.Port)
	if err != nil {
		logger.Fatal("Error listening on gRPC port", zap.String("addr", cfg.GRPC.Port), zap.Error(err))
	}
	go func() {
		logger.Info("gRPC health server listening", zap.String("addr", cfg.GRPC.Port))
		if err := healthServer.Serve(lis); err != nil {
			logger.Error("Error serving gRPC", zap.Error(err))
		}
	}()

	app := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.NewMetricsMiddleware(m))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Limiter.Max,
		Expiration: cfg.Limiter.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
			})
		},
	}))

	handlers := &transport.Handlers{
		Auth:    handler.NewAuthHandler(sessions, logger),
		Product: handler.NewProductHandler(productService, logger, cfg.HTTP.Timeout),
		Order:   handler.NewOrderHandler(orderService, logger, cfg.HTTP.Timeout),
	}

	transport.RegisterRoutes(app, handlers, sessions, transport.RouterConfig{
		Prefix:         cfg.HTTP.Prefix,
		GuardMutations: cfg.Auth.GuardMutations,
	})

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			logger.Error("Error listening HTTP", zap.String("addr", cfg.HTTP.Port), zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	healthServer.GracefulStop()

	var shutdownErr error
	shutdownErr = multierr.Append(shutdownErr, app.ShutdownWithContext(shutdownCtx))
	shutdownErr = multierr.Append(shutdownErr, metricsServer.Shutdown(shutdownCtx))
	if kafkaProducer != nil {
		shutdownErr = multierr.Append(shutdownErr, kafkaProducer.Close())
	}
	shutdownErr = multierr.Append(shutdownErr, rdb.Close())
	pool.Close()
	shutdownErr = multierr.Append(shutdownErr, shutdownTracer(shutdownCtx))

	for _, err := range multierr.Errors(shutdownErr) {
		logger.Error("Shutdown error", zap.Error(err))
	}

	logger.Info("Stopped")
}
