package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spending-insight/backend/internal/domain/item"
	"github.com/spending-insight/backend/internal/ingest"
)

// SyncHandler handles the on-demand sync endpoint
type SyncHandler struct {
	syncer ingest.Syncer
	logger *slog.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, syncer ingest.Syncer) *SyncHandler {
	return &SyncHandler{
		syncer: syncer,
		logger: logger,
	}
}

// Sync runs a trailing-window sync for the client's newest active item and
// reports how many rows were written.
func (h *SyncHandler) Sync(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		RespondBadRequest(c, "Invalid client ID")
		return
	}

	upserted, err := h.syncer.SyncWindow(c.Request.Context(), clientID)
	if err != nil {
		var noItem item.ErrNoActiveItem
		var noCred ingest.ErrNoCredential
		switch {
		case errors.As(err, &noItem):
			RespondNotFound(c, "No active bank linkage for client")
		case errors.As(err, &noCred):
			h.logger.Error("Credential missing for active item", "client_id", req.ClientID, "error", err)
			RespondNotFound(c, "No access credential stored; relink the institution")
		default:
			h.logger.Error("On-demand sync failed", "client_id", req.ClientID, "error", err)
			respondProviderOrInternal(c, err)
		}
		return
	}

	RespondOK(c, SyncResponse{Upserted: upserted})
}
