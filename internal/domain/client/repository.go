// Package client holds the minimal client identity: a UUID every item,
// account and transaction hangs off.
package client

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines client persistence operations
type Repository interface {
	// EnsureExists inserts the client row if absent; a no-op otherwise
	EnsureExists(ctx context.Context, clientID uuid.UUID) error

	WithTx(tx pgx.Tx) Repository
}
