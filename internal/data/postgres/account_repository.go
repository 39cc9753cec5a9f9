package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spending-insight/backend/internal/domain/account"
	"github.com/spending-insight/backend/internal/platform/persistence"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByExternalID resolves an account by its current provider account id.
// Returns nil, nil when no account carries that pointer.
func (r *AccountRepository) GetByExternalID(ctx context.Context, clientID uuid.UUID, externalID string) (*account.Account, error) {
	query := `
		SELECT id, client_id, institution_id, current_item_id, current_external_id,
			name, COALESCE(mask, ''), COALESCE(subtype, ''), is_active, last_seen
		FROM accounts
		WHERE client_id = $1 AND current_external_id = $2
		LIMIT 1
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, clientID, externalID).Scan(
		&acc.ID,
		&acc.ClientID,
		&acc.InstitutionID,
		&acc.CurrentItemID,
		&acc.CurrentExternalID,
		&acc.Name,
		&acc.Mask,
		&acc.Subtype,
		&acc.Active,
		&acc.LastSeen,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get account by external id", "external_id", externalID, "error", err)
		return nil, fmt.Errorf("failed to get account by external id: %w", err)
	}

	return &acc, nil
}

// Create inserts a new account and returns its surrogate id
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) (int64, error) {
	query := `
		INSERT INTO accounts (client_id, institution_id, current_item_id, current_external_id, name, mask, subtype)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''))
		RETURNING id
	`

	var id int64
	err := r.querier.QueryRow(ctx, query,
		acc.ClientID,
		acc.InstitutionID,
		acc.CurrentItemID,
		acc.CurrentExternalID,
		acc.Name,
		acc.Mask,
		acc.Subtype,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to create account", "external_id", acc.CurrentExternalID, "error", err)
		return 0, fmt.Errorf("failed to create account: %w", err)
	}

	return id, nil
}

// Refresh updates the mutable fields of an existing account and marks it active
func (r *AccountRepository) Refresh(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET name                = $1,
			mask                = NULLIF($2, ''),
			subtype             = NULLIF($3, ''),
			institution_id      = $4,
			current_item_id     = $5,
			current_external_id = $6,
			last_seen           = NOW(),
			is_active           = TRUE
		WHERE id = $7 AND client_id = $8
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Name,
		acc.Mask,
		acc.Subtype,
		acc.InstitutionID,
		acc.CurrentItemID,
		acc.CurrentExternalID,
		acc.ID,
		acc.ClientID,
	)
	if err != nil {
		r.logger.Error("Failed to refresh account", "id", acc.ID, "error", err)
		return fmt.Errorf("failed to refresh account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found for refresh", acc.ID)
	}

	return nil
}

// UpsertLink records the (client, item, external id) -> account mapping
func (r *AccountRepository) UpsertLink(ctx context.Context, link *account.Link) error {
	query := `
		INSERT INTO account_links (client_id, item_id, external_account_id, account_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id, item_id, external_account_id) DO UPDATE
		SET account_id = EXCLUDED.account_id,
			last_seen  = NOW()
	`

	_, err := r.querier.Exec(ctx, query, link.ClientID, link.ItemID, link.ExternalID, link.AccountID)
	if err != nil {
		r.logger.Error("Failed to upsert account link", "external_id", link.ExternalID, "error", err)
		return fmt.Errorf("failed to upsert account link: %w", err)
	}

	return nil
}

// LatestLink returns the most recently seen link for an external account id.
// Returns nil, nil when linkage has not caught up yet.
func (r *AccountRepository) LatestLink(ctx context.Context, externalID string) (*account.Link, error) {
	query := `
		SELECT client_id, item_id, external_account_id, account_id, last_seen
		FROM account_links
		WHERE external_account_id = $1
		ORDER BY last_seen DESC NULLS LAST
		LIMIT 1
	`

	var link account.Link
	err := r.querier.QueryRow(ctx, query, externalID).Scan(
		&link.ClientID,
		&link.ItemID,
		&link.ExternalID,
		&link.AccountID,
		&link.LastSeen,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get latest account link", "external_id", externalID, "error", err)
		return nil, fmt.Errorf("failed to get latest account link: %w", err)
	}

	return &link, nil
}

// FindMergeCandidates returns ids of other accounts sharing the
// (institution, mask, subtype) merge key. Mask and subtype compare with
// empty-string semantics so two null masks still match each other.
func (r *AccountRepository) FindMergeCandidates(ctx context.Context, clientID uuid.UUID, institutionID, mask, subtype string, excludeID int64) ([]int64, error) {
	query := `
		SELECT id
		FROM accounts
		WHERE client_id = $1
			AND institution_id = $2
			AND COALESCE(mask, '') = $3
			AND COALESCE(subtype, '') = $4
			AND id <> $5
	`

	rows, err := r.querier.Query(ctx, query, clientID, institutionID, mask, subtype, excludeID)
	if err != nil {
		r.logger.Error("Failed to find merge candidates", "client_id", clientID.String(), "institution_id", institutionID, "error", err)
		return nil, fmt.Errorf("failed to find merge candidates: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan merge candidate id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate merge candidate ids: %w", err)
	}

	return ids, nil
}

// DeleteOrphans removes the client's accounts at this institution that no
// transaction and no link references anymore.
func (r *AccountRepository) DeleteOrphans(ctx context.Context, clientID uuid.UUID, institutionID string) (int64, error) {
	query := `
		DELETE FROM accounts a
		WHERE a.client_id = $1
			AND a.institution_id = $2
			AND NOT EXISTS (
				SELECT 1 FROM transactions t
				WHERE t.client_id = a.client_id
					AND t.account_id = a.id
			)
			AND NOT EXISTS (
				SELECT 1 FROM account_links l
				WHERE l.client_id = a.client_id
					AND l.account_id = a.id
			)
	`

	result, err := r.querier.Exec(ctx, query, clientID, institutionID)
	if err != nil {
		r.logger.Error("Failed to delete orphan accounts", "client_id", clientID.String(), "institution_id", institutionID, "error", err)
		return 0, fmt.Errorf("failed to delete orphan accounts: %w", err)
	}

	return result.RowsAffected(), nil
}
