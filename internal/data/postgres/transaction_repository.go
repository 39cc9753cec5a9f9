package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spending-insight/backend/internal/domain/transaction"
	"github.com/spending-insight/backend/internal/platform/persistence"
)

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Upsert writes one transaction keyed on (client_id, plaid_tx_id). Account,
// source item, amount and status always take the fresh observation; dates,
// merchant strings and category coalesce toward the existing row so a later
// partial record never erases known detail. The conflict clause reuses the
// raw category parameter rather than EXCLUDED.category: the insert column
// defaults to the sentinel, and coalescing against EXCLUDED would let that
// sentinel clobber a previously stored category.
func (r *TransactionRepository) Upsert(ctx context.Context, t *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			client_id, account_id, source_item_id, plaid_tx_id,
			amount_cents, auth_date, post_date, status,
			merchant_norm, merchant_raw, natural_key_hash, category,
			created_at, updated_at
		)
		VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, COALESCE($12, 'Uncategorized'),
			NOW(), NOW()
		)
		ON CONFLICT (client_id, plaid_tx_id) DO UPDATE
		SET account_id       = EXCLUDED.account_id,
			source_item_id   = EXCLUDED.source_item_id,
			amount_cents     = EXCLUDED.amount_cents,
			auth_date        = COALESCE(EXCLUDED.auth_date, transactions.auth_date),
			post_date        = COALESCE(EXCLUDED.post_date, transactions.post_date),
			status           = EXCLUDED.status,
			merchant_norm    = COALESCE(EXCLUDED.merchant_norm, transactions.merchant_norm),
			merchant_raw     = COALESCE(EXCLUDED.merchant_raw, transactions.merchant_raw),
			natural_key_hash = EXCLUDED.natural_key_hash,
			category         = COALESCE($12, transactions.category),
			updated_at       = NOW()
	`

	_, err := r.querier.Exec(ctx, query,
		t.ClientID,
		t.AccountID,
		t.SourceItemID,
		t.ExternalID,
		t.AmountCents,
		t.AuthDate,
		t.PostDate,
		string(t.Status),
		t.MerchantNorm,
		t.MerchantRaw,
		t.NaturalKeyHash,
		t.Category,
	)
	if err != nil {
		r.logger.Error("Failed to upsert transaction", "external_id", t.ExternalID, "error", err)
		return fmt.Errorf("failed to upsert transaction: %w", err)
	}

	return nil
}

// ReassignAccount re-points every transaction of fromAccountID onto toAccountID
func (r *TransactionRepository) ReassignAccount(ctx context.Context, clientID uuid.UUID, fromAccountID, toAccountID int64) (int64, error) {
	query := `
		UPDATE transactions
		SET account_id = $1
		WHERE client_id = $2
			AND account_id = $3
	`

	result, err := r.querier.Exec(ctx, query, toAccountID, clientID, fromAccountID)
	if err != nil {
		r.logger.Error("Failed to reassign transactions to account", "from", fromAccountID, "to", toAccountID, "error", err)
		return 0, fmt.Errorf("failed to reassign transactions to account: %w", err)
	}

	return result.RowsAffected(), nil
}

// ReassignItems re-points transactions sourced from any inactive item of the
// (client, institution) pair onto newItemID.
func (r *TransactionRepository) ReassignItems(ctx context.Context, clientID uuid.UUID, institutionID, newItemID string) (int64, error) {
	query := `
		UPDATE transactions
		SET source_item_id = $1
		WHERE client_id = $2
			AND source_item_id IN (
				SELECT item_id
				FROM items
				WHERE client_id = $2
					AND institution_id = $3
					AND item_id <> $1
					AND is_active = FALSE
			)
	`

	result, err := r.querier.Exec(ctx, query, newItemID, clientID, institutionID)
	if err != nil {
		r.logger.Error("Failed to reassign transactions to item", "client_id", clientID.String(), "item_id", newItemID, "error", err)
		return 0, fmt.Errorf("failed to reassign transactions to item: %w", err)
	}

	return result.RowsAffected(), nil
}

// ListByClient returns newest-first rows using keyset pagination on (post_date, id)
func (r *TransactionRepository) ListByClient(ctx context.Context, clientID uuid.UUID, limit int, beforeDate *time.Time, beforeID *int64) ([]*transaction.ListRow, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if beforeDate != nil && beforeID != nil {
		query := `
			SELECT t.id, t.account_id, a.name, COALESCE(t.merchant_raw, ''), t.category,
				t.amount_cents, COALESCE(t.post_date, t.auth_date, t.created_at::date), t.status
			FROM transactions t
			JOIN accounts a ON a.id = t.account_id
			WHERE t.client_id = $1
				AND (t.post_date, t.id) < ($2::date, $3)
			ORDER BY t.post_date DESC NULLS LAST, t.id DESC
			LIMIT $4
		`
		rows, err = r.querier.Query(ctx, query, clientID, *beforeDate, *beforeID, limit)
	} else {
		query := `
			SELECT t.id, t.account_id, a.name, COALESCE(t.merchant_raw, ''), t.category,
				t.amount_cents, COALESCE(t.post_date, t.auth_date, t.created_at::date), t.status
			FROM transactions t
			JOIN accounts a ON a.id = t.account_id
			WHERE t.client_id = $1
			ORDER BY t.post_date DESC NULLS LAST, t.id DESC
			LIMIT $2
		`
		rows, err = r.querier.Query(ctx, query, clientID, limit)
	}
	if err != nil {
		r.logger.Error("Failed to list transactions", "client_id", clientID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var list []*transaction.ListRow
	for rows.Next() {
		var row transaction.ListRow
		if err := rows.Scan(
			&row.ID,
			&row.AccountID,
			&row.AccountName,
			&row.Merchant,
			&row.Category,
			&row.AmountCents,
			&row.PostDate,
			&row.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		list = append(list, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transaction rows: %w", err)
	}

	return list, nil
}
