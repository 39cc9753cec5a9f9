package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spending-insight/backend/internal/ingest"
	"github.com/spending-insight/backend/internal/platform/provider"
)

// LinkHandler handles the Link token and exchange endpoints
type LinkHandler struct {
	linker ingest.Linker
	logger *slog.Logger
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(logger *slog.Logger, linker ingest.Linker) *LinkHandler {
	return &LinkHandler{
		linker: linker,
		logger: logger,
	}
}

// CreateToken issues a short-lived Link token for the client
func (h *LinkHandler) CreateToken(c *gin.Context) {
	var req LinkTokenRequest
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

	token, err := h.linker.CreateLinkToken(c.Request.Context(), clientID)
	if err != nil {
		h.logger.Error("Failed to create link token", "client_id", req.ClientID, "error", err)
		respondProviderOrInternal(c, err)
		return
	}

	RespondOK(c, LinkTokenResponse{LinkToken: token})
}

// Exchange turns a one-time public token into a durable item linkage
func (h *LinkHandler) Exchange(c *gin.Context) {
	var req ExchangeRequest
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

	result, err := h.linker.Exchange(c.Request.Context(), clientID, req.PublicToken)
	if err != nil {
		h.logger.Error("Link exchange failed", "client_id", req.ClientID, "error", err)
		respondProviderOrInternal(c, err)
		return
	}

	RespondCreated(c, ExchangeResponse{
		ItemID:        result.ItemID,
		InstitutionID: result.InstitutionID,
	})
}

// respondProviderOrInternal surfaces provider rejections as 502 with the
// provider's message; anything else stays an opaque 500.
func respondProviderOrInternal(c *gin.Context, err error) {
	var provErr *provider.Error
	if errors.As(err, &provErr) {
		RespondBadGateway(c, provErr.Message)
		return
	}
	RespondInternalError(c)
}
