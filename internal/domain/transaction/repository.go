package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines transaction persistence operations
type Repository interface {
	// Upsert writes one transaction keyed on (client_id, plaid_tx_id). On
	// conflict, account, source item, amount and status always take the
	// fresh observation; dates, merchant strings and category only overwrite
	// when the incoming value is non-null.
	Upsert(ctx context.Context, t *Transaction) error

	// ReassignAccount re-points every transaction of fromAccountID onto
	// toAccountID, preserving history across an account-identity merge.
	// Returns the number of rows moved.
	ReassignAccount(ctx context.Context, clientID uuid.UUID, fromAccountID, toAccountID int64) (int64, error)

	// ReassignItems re-points transactions whose source item is any inactive
	// item of the (client, institution) pair onto newItemID. Returns the
	// number of rows moved.
	ReassignItems(ctx context.Context, clientID uuid.UUID, institutionID, newItemID string) (int64, error)

	// ListByClient returns newest-first rows using keyset pagination on
	// (post_date, id); both cursor values must be supplied together.
	ListByClient(ctx context.Context, clientID uuid.UUID, limit int, beforeDate *time.Time, beforeID *int64) ([]*ListRow, error)

	WithTx(tx pgx.Tx) Repository
}
