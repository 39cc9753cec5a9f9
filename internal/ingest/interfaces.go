// Package ingest contains the account and transaction reconciliation engine:
// the link-exchange protocol, the idempotent transaction upsert, and the sync
// orchestrator that drives cursor-incremental and window-bulk pulls.
package ingest

import (
	"context"

	"github.com/google/uuid"
	"github.com/spending-insight/backend/internal/domain/synclog"
	"github.com/spending-insight/backend/internal/platform/provider"
)

// Linker exposes the link-exchange operations to the HTTP layer
type Linker interface {
	// Exchange turns a one-time public token into a durable, ready-to-sync
	// item, merging accounts and migrating transaction history from any
	// superseded linkage.
	Exchange(ctx context.Context, clientID uuid.UUID, publicToken string) (*ExchangeResult, error)

	// CreateLinkToken creates a short-lived Link token for the client
	CreateLinkToken(ctx context.Context, clientID uuid.UUID) (string, error)
}

// Upserter normalizes and idempotently writes one provider transaction
// record. The bool result reports whether a row was written; records with
// missing identifiers or no linkage yet are skipped silently.
type Upserter interface {
	Upsert(ctx context.Context, clientID uuid.UUID, itemID string, rec provider.Transaction) (bool, error)
}

// Syncer drives synchronization against the aggregator provider
type Syncer interface {
	// SyncItem runs the cursor-incremental loop for one item until the
	// provider reports no more pages, then persists the final cursor.
	SyncItem(ctx context.Context, itemID string, trigger synclog.Trigger) error

	// SyncWindow pulls a fixed trailing window for the client's most
	// recently linked active item and returns the upserted count.
	SyncWindow(ctx context.Context, clientID uuid.UUID) (int, error)
}

// ExchangeResult is the outcome of a successful link exchange
type ExchangeResult struct {
	ItemID        string `json:"item_id"`
	InstitutionID string `json:"institution_id"`
}

// ErrNoCredential indicates the vault holds no secret for a resolved item.
// This points at a vault/database desynchronization; the caller may retry
// after the next successful link.
type ErrNoCredential struct {
	ItemID string
}

func (e ErrNoCredential) Error() string {
	return "no access credential stored for item: " + e.ItemID
}
