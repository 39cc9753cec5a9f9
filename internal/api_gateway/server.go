// Package api_gateway wires the HTTP surface: link token issuance, token
// exchange, on-demand sync, provider webhooks and transaction listing.
package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spending-insight/backend/internal/api_gateway/handler"
	"github.com/spending-insight/backend/internal/config"
	"github.com/spending-insight/backend/internal/domain/transaction"
	"github.com/spending-insight/backend/internal/ingest"
	"github.com/spending-insight/backend/internal/platform/messaging/producers"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	linker ingest.Linker,
	syncer ingest.Syncer,
	publisher producers.MessagePublisher,
	txRepo transaction.Repository,
) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	linkHandler := handler.NewLinkHandler(log, linker)
	syncHandler := handler.NewSyncHandler(log, syncer)
	webhookHandler := handler.NewWebhookHandler(log, publisher)
	transactionHandler := handler.NewTransactionHandler(log, txRepo)

	setupRouter(log, httpRouter, linkHandler, syncHandler, webhookHandler, transactionHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
