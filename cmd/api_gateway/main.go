package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spending-insight/backend/internal/api_gateway"
	"github.com/spending-insight/backend/internal/config"
	"github.com/spending-insight/backend/internal/data/mongo"
	"github.com/spending-insight/backend/internal/data/postgres"
	"github.com/spending-insight/backend/internal/ingest"
	"github.com/spending-insight/backend/internal/logger"
	"github.com/spending-insight/backend/internal/platform/messaging/producers"
	"github.com/spending-insight/backend/internal/platform/persistence"
	"github.com/spending-insight/backend/internal/platform/provider"
	"github.com/spending-insight/backend/internal/platform/vault"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

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

	// Initialize Kafka producer for webhook-driven sync events
	kafkaProducer, err := producers.NewSyncEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize sync event producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	clientRepo := postgres.NewClientRepository(log, postgresDB)
	itemRepo := postgres.NewItemRepository(log, postgresDB)
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	txRepo := postgres.NewTransactionRepository(log, postgresDB)
	syncLogRepo := mongo.NewSyncLogRepository(log, mongoDB.Database())

	// Initialize services
	linkService := ingest.NewLinkService(log, postgresDB, plaidClient, secretStore,
		clientRepo, itemRepo, accountRepo, txRepo, cfg.Vault.SecretPrefix)
	upsertService := ingest.NewTxUpsertService(log, accountRepo, txRepo)
	syncService := ingest.NewSyncService(log, itemRepo, secretStore, plaidClient,
		upsertService, syncLogRepo, cfg.Vault.SecretPrefix, cfg.Sync.WindowDays)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, linkService, syncService, kafkaProducer, txRepo)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
