package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/events"
	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/handler"
	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/notify"
	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/repository"
	"github.com/cloud-wave-best-zizon/fulfillment-service/internal/service"
	"github.com/cloud-wave-best-zizon/fulfillment-service/pkg/config"
	"github.com/cloud-wave-best-zizon/fulfillment-service/pkg/middleware"
	"github.com/cloud-wave-best-zizon/fulfillment-service/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Service configuration",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
		zap.String("notifier", cfg.Notifier),
		zap.String("kafka_brokers", cfg.KafkaBrokers),
		zap.Bool("tracing", cfg.OtelEndpoint != ""))

	if cfg.OtelEndpoint != "" {
		shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OtelEndpoint, cfg.OtelInsecure)
		if err != nil {
			logger.Fatal("Failed to set up tracing", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				logger.Error("Tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	// Initialize components
	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer store.Close()

	checks := map[string]handler.HealthCheck{
		"store": store.Ping,
	}

	var publisher events.Publisher
	if cfg.KafkaBrokers != "" {
		kafkaProducer, err := events.NewKafkaProducer(cfg.KafkaBrokers, cfg.OrderEventsTopic, logger)
		if err != nil {
			logger.Fatal("Failed to create Kafka producer", zap.Error(err))
		}
		defer kafkaProducer.Close()

		publisher = kafkaProducer
		checks["kafka"] = kafkaProducer.HealthCheck
	}

	var notifier notify.Notifier
	switch cfg.Notifier {
	case config.NotifierKafka:
		kafkaNotifier := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.NotificationTopic, logger)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	default:
		notifier = notify.NewLogNotifier(logger)
	}

	orderService := service.NewOrderService(store, notifier, publisher, service.Options{
		MaxCommitAttempts:  cfg.MaxCommitAttempts,
		CommitRetryBackoff: cfg.CommitRetryBackoff,
		NotifyTimeout:      cfg.NotifyTimeout,
	}, logger)
	catalogService := service.NewCatalogService(store, logger)

	// Setup Gin Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))

	handler.Register(router.Group("/api/v1"),
		handler.NewOrderHandler(orderService, logger),
		handler.NewCatalogHandler(catalogService, logger),
		handler.NewHealthHandler("fulfillment-service", checks))

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}
	logger.Info("Server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return repository.NewMemoryStore(), nil
	case config.StoreDynamoDB:
		client, err := repository.NewDynamoDBClient(cfg)
		if err != nil {
			return nil, err
		}
		return repository.NewDynamoStore(client, cfg.OrderTableName, cfg.CatalogTableName), nil
	default:
		return repository.NewSQLiteStore(cfg.SQLitePath)
	}
}
