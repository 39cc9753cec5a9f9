package ingest

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spending-insight/backend/internal/domain/account"
	"github.com/spending-insight/backend/internal/domain/transaction"
	"github.com/spending-insight/backend/internal/platform/provider"
)

// TxUpsertService normalizes raw provider transactions and writes them with
// coalesce-toward-existing semantics: a re-observation of a known external id
// updates mutable fields but never blanks out dates, merchant strings or a
// previously stored category with missing data.
type TxUpsertService struct {
	accountRepo account.Repository
	txRepo      transaction.Repository
	logger      *slog.Logger
}

// NewTxUpsertService creates a new transaction upsert service
func NewTxUpsertService(logger *slog.Logger, accountRepo account.Repository, txRepo transaction.Repository) *TxUpsertService {
	return &TxUpsertService{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		logger:      logger,
	}
}

// Upsert stores one provider record for the given owner and source item.
// Records without an external transaction or account id, and records whose
// external account id has no linkage row yet, are skipped with a false
// result and no error: they may become storable on a later sync.
func (s *TxUpsertService) Upsert(ctx context.Context, clientID uuid.UUID, itemID string, rec provider.Transaction) (bool, error) {
	if rec.ExternalID == "" || rec.ExternalAccountID == "" {
		s.logger.Debug("Skipping transaction with missing identifiers", "client_id", clientID.String(), "item_id", itemID)
		return false, nil
	}

	link, err := s.accountRepo.LatestLink(ctx, rec.ExternalAccountID)
	if err != nil {
		return false, err
	}
	if link == nil {
		s.logger.Debug("Skipping transaction with no account linkage",
			"client_id", clientID.String(),
			"external_account_id", rec.ExternalAccountID,
			"external_tx_id", rec.ExternalID,
		)
		return false, nil
	}

	tx := derive(clientID, link.AccountID, itemID, rec)
	if err := s.txRepo.Upsert(ctx, tx); err != nil {
		return false, err
	}
	return true, nil
}

// derive applies the normalization rules to one raw record
func derive(clientID uuid.UUID, accountID int64, itemID string, rec provider.Transaction) *transaction.Transaction {
	status := transaction.StatusPosted
	if rec.Pending {
		status = transaction.StatusPending
	}

	// Auth date falls back to the posting date when absent, so pending and
	// posted observations of the same event hash identically.
	authDate := rec.AuthorizedDate
	if authDate == nil {
		authDate = rec.Date
	}

	cents := transaction.ToMinorUnits(rec.Amount)
	raw := rec.RawMerchant()

	var merchantRaw, merchantNorm *string
	if raw != "" {
		merchantRaw = &raw
		if norm := transaction.NormalizeMerchant(raw); norm != "" {
			merchantNorm = &norm
		}
	}

	var category *string
	if label := transaction.CategoryLabel(rec.Category); label != "" {
		category = &label
	}

	return &transaction.Transaction{
		ClientID:       clientID,
		AccountID:      accountID,
		SourceItemID:   itemID,
		ExternalID:     rec.ExternalID,
		AmountCents:    cents,
		AuthDate:       authDate,
		PostDate:       rec.Date,
		Status:         status,
		MerchantNorm:   merchantNorm,
		MerchantRaw:    merchantRaw,
		Category:       category,
		NaturalKeyHash: transaction.NaturalKeyHash(clientID, accountID, cents, rec.Date, raw),
	}
}
