package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spending-insight/backend/internal/api_gateway/handler"
	"github.com/spending-insight/backend/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	linkHandler *handler.LinkHandler,
	syncHandler *handler.SyncHandler,
	webhookHandler *handler.WebhookHandler,
	transactionHandler *handler.TransactionHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		link := v1.Group("/link")
		{
			link.POST("/token", linkHandler.CreateToken)
			link.POST("/exchange", linkHandler.Exchange)
		}

		v1.POST("/sync", syncHandler.Sync)
		v1.GET("/transactions", transactionHandler.List)
	}

	// Provider-facing webhook, outside the versioned API surface
	r.POST("/plaid/webhook", webhookHandler.Receive)

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
