package item

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines item persistence operations. All multi-step link
// mutations run against a WithTx-wrapped repository so that deactivation,
// re-pointing and deletion commit atomically.
type Repository interface {
	// Upsert inserts the item or, on conflict with (client_id, item_id),
	// refreshes the institution, stamps last_linked_at and reactivates it.
	Upsert(ctx context.Context, it *Item) error

	// GetByItemID resolves an item regardless of owning client. Returns
	// ErrItemNotFound if the item does not exist.
	GetByItemID(ctx context.Context, itemID string) (*Item, error)

	// NewestActive returns the most recently linked active item for the
	// client. Returns ErrNoActiveItem when the client has no active linkage.
	NewestActive(ctx context.Context, clientID uuid.UUID) (*Item, error)

	// ListActive returns every active item across all clients, for the
	// background refresher.
	ListActive(ctx context.Context) ([]*Item, error)

	// DeactivateOthers flips is_active off for every other item of the
	// (client, institution) pair, preserving the unique-active invariant.
	DeactivateOthers(ctx context.Context, clientID uuid.UUID, institutionID, keepItemID string) error

	// ListSuperseded returns ids of inactive items for the (client,
	// institution) pair other than keepItemID.
	ListSuperseded(ctx context.Context, clientID uuid.UUID, institutionID, keepItemID string) ([]string, error)

	// DeleteSuperseded removes those same items; account_links cascade.
	DeleteSuperseded(ctx context.Context, clientID uuid.UUID, institutionID, keepItemID string) error

	// SaveCursor persists the sync cursor for an item. Called only after the
	// corresponding batch has been durably upserted.
	SaveCursor(ctx context.Context, itemID string, cursor string) error

	WithTx(tx pgx.Tx) Repository
}

// ErrNoActiveItem indicates the client has no active institution linkage
type ErrNoActiveItem struct {
	ClientID uuid.UUID
}

func (e ErrNoActiveItem) Error() string {
	return "no active item for client: " + e.ClientID.String()
}

// ErrItemNotFound indicates an unknown item id
type ErrItemNotFound struct {
	ItemID string
}

func (e ErrItemNotFound) Error() string {
	return "item not found: " + e.ItemID
}
