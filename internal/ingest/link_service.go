package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spending-insight/backend/internal/domain/account"
	"github.com/spending-insight/backend/internal/domain/client"
	"github.com/spending-insight/backend/internal/domain/item"
	"github.com/spending-insight/backend/internal/domain/transaction"
	"github.com/spending-insight/backend/internal/platform/provider"
	"github.com/spending-insight/backend/internal/platform/vault"
)

// LinkService implements the link-exchange protocol. External account ids are
// not stable across relinks to the same institution, so account identity is
// reconstructed from (institution, mask, subtype) and both transaction
// pointers (account and source item) are migrated before the superseded
// linkage is removed. The re-pointing order matters: accounts first, then
// transactions by merge key, then transactions by source item, then item
// deletion, then orphan cleanup.
// TxRunner runs a function inside one store transaction, committing on nil
// and rolling back otherwise. *persistence.PostgresDB satisfies it.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type LinkService struct {
	db           TxRunner
	provider     provider.Client
	secrets      vault.SecretStore
	clientRepo   client.Repository
	itemRepo     item.Repository
	accountRepo  account.Repository
	txRepo       transaction.Repository
	secretPrefix string
	logger       *slog.Logger
}

// NewLinkService creates a new link exchange service
func NewLinkService(
	logger *slog.Logger,
	db TxRunner,
	providerClient provider.Client,
	secrets vault.SecretStore,
	clientRepo client.Repository,
	itemRepo item.Repository,
	accountRepo account.Repository,
	txRepo transaction.Repository,
	secretPrefix string,
) *LinkService {
	return &LinkService{
		db:           db,
		provider:     providerClient,
		secrets:      secrets,
		clientRepo:   clientRepo,
		itemRepo:     itemRepo,
		accountRepo:  accountRepo,
		txRepo:       txRepo,
		secretPrefix: secretPrefix,
		logger:       logger,
	}
}

// CreateLinkToken creates a short-lived Link token for the client
func (s *LinkService) CreateLinkToken(ctx context.Context, clientID uuid.UUID) (string, error) {
	token, err := s.provider.CreateLinkToken(ctx, clientID.String())
	if err != nil {
		s.logger.Error("Failed to create link token", "client_id", clientID.String(), "error", err)
		return "", err
	}
	return token, nil
}

// Exchange swaps the public token for a durable credential, stores it in the
// vault, and runs the merge/retire/cleanup protocol inside one store
// transaction. Credential revocation for superseded items happens after the
// commit and never fails the call.
func (s *LinkService) Exchange(ctx context.Context, clientID uuid.UUID, publicToken string) (*ExchangeResult, error) {
	exchanged, err := s.provider.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		s.logger.Error("Token exchange failed", "client_id", clientID.String(), "error", err)
		return nil, err
	}

	institutionID, err := s.provider.GetInstitutionID(ctx, exchanged.AccessToken)
	if err != nil {
		s.logger.Error("Institution lookup failed", "client_id", clientID.String(), "item_id", exchanged.ItemID, "error", err)
		return nil, err
	}

	// The credential must be durable before the item row exists, otherwise a
	// committed item could point at nothing. The reverse gap (credential
	// without item, after a crash here) is recoverable: the secret write is
	// an upsert and the next exchange overwrites it.
	secretName := vault.SecretName(s.secretPrefix, clientID, exchanged.ItemID)
	if err := s.secrets.Put(ctx, secretName, exchanged.AccessToken); err != nil {
		s.logger.Error("Failed to store access credential", "client_id", clientID.String(), "item_id", exchanged.ItemID, "error", err)
		return nil, fmt.Errorf("failed to store access credential: %w", err)
	}

	// Best-effort: a failed accounts fetch is non-fatal, sync recovers the
	// accounts later once linkage catches up.
	accounts, err := s.provider.GetAccounts(ctx, exchanged.AccessToken)
	if err != nil {
		s.logger.Warn("Accounts fetch failed, proceeding without accounts", "item_id", exchanged.ItemID, "error", err)
		accounts = nil
	}

	var superseded []string
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		clients := s.clientRepo.WithTx(tx)
		items := s.itemRepo.WithTx(tx)
		accts := s.accountRepo.WithTx(tx)
		txs := s.txRepo.WithTx(tx)

		if err := clients.EnsureExists(ctx, clientID); err != nil {
			return err
		}

		if err := items.DeactivateOthers(ctx, clientID, institutionID, exchanged.ItemID); err != nil {
			return err
		}

		if err := items.Upsert(ctx, &item.Item{
			ClientID:      clientID,
			ItemID:        exchanged.ItemID,
			InstitutionID: institutionID,
		}); err != nil {
			return err
		}

		for _, a := range accounts {
			if err := s.reconcileAccount(ctx, accts, txs, clientID, institutionID, exchanged.ItemID, a); err != nil {
				return err
			}
		}

		superseded, err = items.ListSuperseded(ctx, clientID, institutionID, exchanged.ItemID)
		if err != nil {
			return err
		}

		moved, err := txs.ReassignItems(ctx, clientID, institutionID, exchanged.ItemID)
		if err != nil {
			return err
		}
		if moved > 0 {
			s.logger.Info("Re-pointed transactions from superseded items", "client_id", clientID.String(), "item_id", exchanged.ItemID, "count", moved)
		}

		if err := items.DeleteSuperseded(ctx, clientID, institutionID, exchanged.ItemID); err != nil {
			return err
		}

		deleted, err := accts.DeleteOrphans(ctx, clientID, institutionID)
		if err != nil {
			return err
		}
		if deleted > 0 {
			s.logger.Info("Deleted orphan accounts", "client_id", clientID.String(), "institution_id", institutionID, "count", deleted)
		}

		return nil
	})
	if err != nil {
		s.logger.Error("Link exchange transaction failed", "client_id", clientID.String(), "item_id", exchanged.ItemID, "error", err)
		return nil, err
	}

	s.cleanupSuperseded(ctx, clientID, superseded)

	s.logger.Info("Link exchange completed",
		"client_id", clientID.String(),
		"item_id", exchanged.ItemID,
		"institution_id", institutionID,
		"superseded_items", len(superseded),
	)

	return &ExchangeResult{
		ItemID:        exchanged.ItemID,
		InstitutionID: institutionID,
	}, nil
}

// reconcileAccount resolves one observed account by external id, creating or
// refreshing it, upserts its link row, and migrates transaction history from
// an older account sharing the merge key. An ambiguous merge key (several
// candidate accounts with identical institution, mask and subtype) migrates
// nothing: creating a split history beats silently merging the wrong pair.
func (s *LinkService) reconcileAccount(
	ctx context.Context,
	accts account.Repository,
	txs transaction.Repository,
	clientID uuid.UUID,
	institutionID string,
	itemID string,
	observed provider.Account,
) error {
	existing, err := accts.GetByExternalID(ctx, clientID, observed.ExternalID)
	if err != nil {
		return err
	}

	acc := &account.Account{
		ClientID:          clientID,
		InstitutionID:     institutionID,
		CurrentItemID:     itemID,
		CurrentExternalID: observed.ExternalID,
		Name:              observed.DisplayName(),
		Mask:              observed.Mask,
		Subtype:           observed.Subtype,
	}

	if existing == nil {
		acc.ID, err = accts.Create(ctx, acc)
		if err != nil {
			return err
		}
	} else {
		acc.ID = existing.ID
		if err := accts.Refresh(ctx, acc); err != nil {
			return err
		}
	}

	if err := accts.UpsertLink(ctx, &account.Link{
		ClientID:   clientID,
		ItemID:     itemID,
		ExternalID: observed.ExternalID,
		AccountID:  acc.ID,
	}); err != nil {
		return err
	}

	candidates, err := accts.FindMergeCandidates(ctx, clientID, institutionID, observed.Mask, observed.Subtype, acc.ID)
	if err != nil {
		return err
	}

	match := account.ResolveMerge(candidates)
	switch match.Outcome {
	case account.MergeMatched:
		moved, err := txs.ReassignAccount(ctx, clientID, match.AccountID, acc.ID)
		if err != nil {
			return err
		}
		if moved > 0 {
			s.logger.Info("Migrated transaction history across relink",
				"client_id", clientID.String(),
				"from_account", match.AccountID,
				"to_account", acc.ID,
				"count", moved,
			)
		}
	case account.MergeAmbiguous:
		s.logger.Warn("Ambiguous account merge key, skipping history migration",
			"client_id", clientID.String(),
			"institution_id", institutionID,
			"mask", observed.Mask,
			"subtype", observed.Subtype,
			"candidates", match.Candidates,
		)
	}

	return nil
}

// cleanupSuperseded revokes and deletes credentials of superseded items.
// The item rows are already gone, so every failure here is only logged.
func (s *LinkService) cleanupSuperseded(ctx context.Context, clientID uuid.UUID, supersededItems []string) {
	for _, oldItemID := range supersededItems {
		secretName := vault.SecretName(s.secretPrefix, clientID, oldItemID)

		oldToken, err := s.secrets.Get(ctx, secretName)
		if err != nil {
			if err != vault.ErrSecretNotFound {
				s.logger.Warn("Failed to read superseded credential", "item_id", oldItemID, "error", err)
			}
			continue
		}

		if err := s.provider.RemoveItem(ctx, oldToken); err != nil {
			s.logger.Warn("Failed to revoke superseded credential upstream", "item_id", oldItemID, "error", err)
		}

		if err := s.secrets.Delete(ctx, secretName); err != nil {
			s.logger.Warn("Failed to delete superseded vault secret", "item_id", oldItemID, "error", err)
		}
	}
}
