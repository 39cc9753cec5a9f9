package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spending-insight/backend/internal/domain/item"
	"github.com/spending-insight/backend/internal/platform/persistence"
)

// ItemRepository implements the item.Repository interface for PostgreSQL
type ItemRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewItemRepository creates a new PostgreSQL item repository
func NewItemRepository(logger *slog.Logger, db *persistence.PostgresDB) item.Repository {
	return &ItemRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so item mutations compose
// with the rest of the link-exchange protocol.
func (r *ItemRepository) WithTx(tx pgx.Tx) item.Repository {
	return &ItemRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Upsert records or refreshes the item row, reactivating it and stamping
// last_linked_at on conflict.
func (r *ItemRepository) Upsert(ctx context.Context, it *item.Item) error {
	query := `
		INSERT INTO items (client_id, item_id, institution_id, is_active, last_linked_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		ON CONFLICT (client_id, item_id) DO UPDATE
		SET institution_id = EXCLUDED.institution_id,
			last_linked_at = NOW(),
			is_active      = TRUE
	`

	_, err := r.querier.Exec(ctx, query, it.ClientID, it.ItemID, it.InstitutionID)
	if err != nil {
		r.logger.Error("Failed to upsert item", "item_id", it.ItemID, "error", err)
		return fmt.Errorf("failed to upsert item: %w", err)
	}

	return nil
}

// GetByItemID resolves an item by its provider-assigned id
func (r *ItemRepository) GetByItemID(ctx context.Context, itemID string) (*item.Item, error) {
	query := `
		SELECT client_id, item_id, institution_id, is_active, COALESCE(sync_cursor, ''), last_linked_at
		FROM items
		WHERE item_id = $1
	`

	var it item.Item
	err := r.querier.QueryRow(ctx, query, itemID).Scan(
		&it.ClientID,
		&it.ItemID,
		&it.InstitutionID,
		&it.Active,
		&it.SyncCursor,
		&it.LastLinkedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, item.ErrItemNotFound{ItemID: itemID}
		}
		r.logger.Error("Failed to get item", "item_id", itemID, "error", err)
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &it, nil
}

// NewestActive returns the most recently linked active item for the client
func (r *ItemRepository) NewestActive(ctx context.Context, clientID uuid.UUID) (*item.Item, error) {
	query := `
		SELECT client_id, item_id, institution_id, is_active, COALESCE(sync_cursor, ''), last_linked_at
		FROM items
		WHERE client_id = $1 AND is_active
		ORDER BY last_linked_at DESC
		LIMIT 1
	`

	var it item.Item
	err := r.querier.QueryRow(ctx, query, clientID).Scan(
		&it.ClientID,
		&it.ItemID,
		&it.InstitutionID,
		&it.Active,
		&it.SyncCursor,
		&it.LastLinkedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, item.ErrNoActiveItem{ClientID: clientID}
		}
		r.logger.Error("Failed to get newest active item", "client_id", clientID.String(), "error", err)
		return nil, fmt.Errorf("failed to get newest active item: %w", err)
	}

	return &it, nil
}

// ListActive returns every active item across all clients
func (r *ItemRepository) ListActive(ctx context.Context) ([]*item.Item, error) {
	query := `
		SELECT client_id, item_id, institution_id, is_active, COALESCE(sync_cursor, ''), last_linked_at
		FROM items
		WHERE is_active
		ORDER BY last_linked_at DESC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list active items", "error", err)
		return nil, fmt.Errorf("failed to list active items: %w", err)
	}
	defer rows.Close()

	var items []*item.Item
	for rows.Next() {
		var it item.Item
		if err := rows.Scan(&it.ClientID, &it.ItemID, &it.InstitutionID, &it.Active, &it.SyncCursor, &it.LastLinkedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item rows: %w", err)
	}

	return items, nil
}

// DeactivateOthers flips is_active off for every other item of this
// (client, institution) pair.
func (r *ItemRepository) DeactivateOthers(ctx context.Context, clientID uuid.UUID, institutionID, keepItemID string) error {
	query := `
		UPDATE items
		SET is_active = FALSE
		WHERE client_id = $1
			AND institution_id = $2
			AND item_id <> $3
			AND is_active
	`

	_, err := r.querier.Exec(ctx, query, clientID, institutionID, keepItemID)
	if err != nil {
		r.logger.Error("Failed to deactivate superseded items", "client_id", clientID.String(), "institution_id", institutionID, "error", err)
		return fmt.Errorf("failed to deactivate superseded items: %w", err)
	}

	return nil
}

// ListSuperseded returns ids of inactive items for the (client, institution)
// pair other than keepItemID.
func (r *ItemRepository) ListSuperseded(ctx context.Context, clientID uuid.UUID, institutionID, keepItemID string) ([]string, error) {
	query := `
		SELECT item_id
		FROM items
		WHERE client_id = $1
			AND institution_id = $2
			AND item_id <> $3
			AND is_active = FALSE
	`

	rows, err := r.querier.Query(ctx, query, clientID, institutionID, keepItemID)
	if err != nil {
		r.logger.Error("Failed to list superseded items", "client_id", clientID.String(), "institution_id", institutionID, "error", err)
		return nil, fmt.Errorf("failed to list superseded items: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan superseded item id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate superseded item ids: %w", err)
	}

	return ids, nil
}

// DeleteSuperseded removes inactive items for the (client, institution) pair;
// their account_links rows cascade.
func (r *ItemRepository) DeleteSuperseded(ctx context.Context, clientID uuid.UUID, institutionID, keepItemID string) error {
	query := `
		DELETE FROM items
		WHERE client_id = $1
			AND institution_id = $2
			AND item_id <> $3
			AND is_active = FALSE
	`

	_, err := r.querier.Exec(ctx, query, clientID, institutionID, keepItemID)
	if err != nil {
		r.logger.Error("Failed to delete superseded items", "client_id", clientID.String(), "institution_id", institutionID, "error", err)
		return fmt.Errorf("failed to delete superseded items: %w", err)
	}

	return nil
}

// SaveCursor persists the final cursor for an item after a completed sync loop
func (r *ItemRepository) SaveCursor(ctx context.Context, itemID string, cursor string) error {
	query := `
		UPDATE items
		SET sync_cursor = $1
		WHERE item_id = $2
	`

	result, err := r.querier.Exec(ctx, query, cursor, itemID)
	if err != nil {
		r.logger.Error("Failed to save sync cursor", "item_id", itemID, "error", err)
		return fmt.Errorf("failed to save sync cursor: %w", err)
	}
	if result.RowsAffected() == 0 {
		return item.ErrItemNotFound{ItemID: itemID}
	}

	return nil
}
