package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account and account-link persistence operations
type Repository interface {
	// GetByExternalID resolves an account by its current provider account id.
	// Returns nil, nil when no account carries that pointer.
	GetByExternalID(ctx context.Context, clientID uuid.UUID, externalID string) (*Account, error)

	// Create inserts a new account and returns its surrogate id
	Create(ctx context.Context, acc *Account) (int64, error)

	// Refresh updates the mutable fields (name, mask, subtype, institution,
	// current item and external id), stamps last_seen and marks the account
	// active.
	Refresh(ctx context.Context, acc *Account) error

	// UpsertLink records the (client, item, external id) -> account mapping,
	// refreshing last_seen on conflict.
	UpsertLink(ctx context.Context, link *Link) error

	// LatestLink returns the most recently seen link for an external account
	// id, or nil, nil when linkage has not caught up yet.
	LatestLink(ctx context.Context, externalID string) (*Link, error)

	// FindMergeCandidates returns ids of other accounts for this client that
	// share the (institution, mask, subtype) merge key, excluding excludeID.
	FindMergeCandidates(ctx context.Context, clientID uuid.UUID, institutionID, mask, subtype string, excludeID int64) ([]int64, error)

	// DeleteOrphans removes the client's accounts at this institution that
	// have no referencing transactions and no referencing links. Returns the
	// number of rows deleted.
	DeleteOrphans(ctx context.Context, clientID uuid.UUID, institutionID string) (int64, error)

	WithTx(tx pgx.Tx) Repository
}
