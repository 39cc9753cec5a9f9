package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spending-insight/backend/internal/domain/shared"
	"github.com/spending-insight/backend/internal/platform/messaging/producers"
)

// transactionsWebhookType is the only provider webhook family that carries
// new transaction data.
const transactionsWebhookType = "TRANSACTIONS"

// WebhookHandler accepts provider webhooks and forwards transaction updates
// to the sync worker over Kafka. The endpoint acknowledges quickly; the
// provider retries on non-2xx, so only a failed publish is surfaced.
type WebhookHandler struct {
	publisher producers.MessagePublisher
	logger    *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *slog.Logger, publisher producers.MessagePublisher) *WebhookHandler {
	return &WebhookHandler{
		publisher: publisher,
		logger:    logger,
	}
}

// Receive handles one webhook delivery. Non-transaction webhook types are
// acknowledged and dropped; transaction updates become sync events keyed by
// item id.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid webhook payload", "error", err)
		RespondBadRequest(c, "Invalid webhook payload")
		return
	}

	if req.WebhookType != transactionsWebhookType || req.ItemID == "" {
		h.logger.Debug("Ignoring webhook",
			"webhook_type", req.WebhookType,
			"webhook_code", req.WebhookCode,
			"item_id", req.ItemID,
		)
		RespondOK(c, gin.H{"acknowledged": true})
		return
	}

	event := shared.SyncEvent{
		ItemID:      req.ItemID,
		WebhookType: req.WebhookType,
		WebhookCode: req.WebhookCode,
		ReceivedAt:  time.Now().UTC(),
	}

	if err := h.publisher.Publish(c.Request.Context(), req.ItemID, event); err != nil {
		h.logger.Error("Failed to publish sync event", "item_id", req.ItemID, "error", err)
		RespondInternalError(c)
		return
	}

	h.logger.Info("Queued sync for webhook",
		"item_id", req.ItemID,
		"webhook_code", req.WebhookCode,
	)
	RespondAccepted(c, gin.H{"acknowledged": true})
}
