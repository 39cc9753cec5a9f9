package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spending-insight/backend/internal/config"
	"github.com/spending-insight/backend/internal/data/mongo"
	"github.com/spending-insight/backend/internal/data/postgres"
	"github.com/spending-insight/backend/internal/ingest"
	"github.com/spending-insight/backend/internal/logger"
	"github.com/spending-insight/backend/internal/platform/messaging/consumers"
	"github.com/spending-insight/backend/internal/platform/messaging/producers"
	"github.com/spending-insight/backend/internal/platform/persistence"
	"github.com/spending-insight/backend/internal/platform/provider"
	"github.com/spending-insight/backend/internal/platform/vault"
	"github.com/spending-insight/backend/internal/sync_worker/consumer"
	"github.com/spending-insight/backend/internal/sync_worker/refresher"
	"github.com/spending-insight/backend/internal/sync_worker/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("sync_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Sync Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize credential vault and aggregator client
	secretStore, err := vault.NewSecretsManagerStore(appCtx, log, &cfg.Vault)
	if err != nil {
		log.Error("Failed to initialize secrets manager", "error", err)
		os.Exit(1)
	}
	plaidClient := provider.NewPlaidClient(log, &cfg.Plaid)

	// Initialize repositories
	itemRepo := postgres.NewItemRepository(log, postgresDB)
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	txRepo := postgres.NewTransactionRepository(log, postgresDB)
	syncLogRepo := mongo.NewSyncLogRepository(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler is nil-safe.

	// Initialize sync services
	upsertService := ingest.NewTxUpsertService(log, accountRepo, txRepo)
	syncService := ingest.NewSyncService(log, itemRepo, secretStore, plaidClient,
		upsertService, syncLogRepo, cfg.Vault.SecretPrefix, cfg.Sync.WindowDays)

	baseProcessor := service.NewSyncProcessingService(log, syncService)
	pooledProcessor, err := service.NewWorkerPoolSyncService(baseProcessor, service.WorkerPoolConfig{
		Size: cfg.WorkerPool.Size,
	}, log)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize sync event handler
	syncEventHandler := consumer.NewSyncEventHandler(log, pooledProcessor, dlqProducer)

	// Initialize periodic refresher
	itemRefresher := refresher.NewRefresher(log, itemRepo, pooledProcessor, cfg.Sync.RefreshInterval)

	// Create error channel for service errors
	errChan := make(chan error, 1)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.SyncEventTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.SyncEventTopic, cfg.Kafka.ConsumerGroup, syncEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start periodic refresher
	log.Info("Starting periodic refresher", "interval", cfg.Sync.RefreshInterval.String())
	itemRefresher.Start(appCtx)

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool
	pooledProcessor.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Sync Worker shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Sync Worker shutdown completed with errors")
	} else {
		log.Info("Sync Worker shutdown completed successfully")
	}
}
