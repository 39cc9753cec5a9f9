package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spending-insight/backend/internal/domain/transaction"
)

// TransactionHandler handles the transaction listing endpoint
type TransactionHandler struct {
	txRepo transaction.Repository
	logger *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, txRepo transaction.Repository) *TransactionHandler {
	return &TransactionHandler{
		txRepo: txRepo,
		logger: logger,
	}
}

// List returns the client's transactions newest first, keyset-paginated on
// (post_date, id). Offset pagination degrades as history grows, so the
// cursor for the next page is echoed back instead.
func (h *TransactionHandler) List(c *gin.Context) {
	var params ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	clientID, err := uuid.Parse(params.ClientID)
	if err != nil {
		RespondBadRequest(c, "Invalid client ID")
		return
	}

	var beforeDate *time.Time
	var beforeID *int64
	if params.BeforeDate != "" || params.BeforeID != 0 {
		if params.BeforeDate == "" || params.BeforeID == 0 {
			RespondBadRequest(c, "before_date and before_id must be supplied together")
			return
		}
		parsed, err := time.Parse("2006-01-02", params.BeforeDate)
		if err != nil {
			RespondBadRequest(c, "Invalid before_date, expected YYYY-MM-DD")
			return
		}
		beforeDate = &parsed
		beforeID = &params.BeforeID
	}

	rows, err := h.txRepo.ListByClient(c.Request.Context(), clientID, params.Limit, beforeDate, beforeID)
	if err != nil {
		h.logger.Error("Failed to list transactions", "client_id", params.ClientID, "error", err)
		RespondInternalError(c)
		return
	}

	resp := TransactionListResponse{Transactions: make([]TransactionRow, 0, len(rows))}
	for _, row := range rows {
		resp.Transactions = append(resp.Transactions, TransactionRow{
			ID:          row.ID,
			AccountID:   row.AccountID,
			AccountName: row.AccountName,
			Merchant:    row.Merchant,
			Category:    row.Category,
			AmountCents: row.AmountCents,
			PostDate:    row.PostDate.Format("2006-01-02"),
			Status:      row.Status,
		})
	}

	if len(rows) == params.Limit {
		last := rows[len(rows)-1]
		resp.NextBeforeDate = last.PostDate.Format("2006-01-02")
		resp.NextBeforeID = last.ID
	}

	RespondOK(c, resp)
}
