// Package item models one authenticated linkage between a client and a
// financial institution. The provider assigns the item id; the institution id
// and sync cursor are attached to it. At most one item per (client,
// institution) pair is active at any time: a fresh link supersedes and
// eventually deletes the older ones.
package item

import (
	"time"

	"github.com/google/uuid"
)

// Item represents one institution linkage for a client
type Item struct {
	ClientID      uuid.UUID `json:"client_id"`
	ItemID        string    `json:"item_id"` // Provider-assigned, opaque
	InstitutionID string    `json:"institution_id"`
	Active        bool      `json:"active"`
	SyncCursor    string    `json:"sync_cursor"` // Opaque incremental-sync position, empty until first sync
	LastLinkedAt  time.Time `json:"last_linked_at"`
}
