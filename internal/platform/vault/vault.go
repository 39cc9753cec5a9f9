// Package vault stores the durable access credentials obtained from the
// aggregator provider. Secret names are derived deterministically from
// (client id, item id) so rotation and lookup never need an auxiliary index.
package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrSecretNotFound indicates no secret exists under the requested name
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore is the credential vault contract. Put has upsert semantics
// (create-if-absent, else overwrite); Delete is best-effort.
type SecretStore interface {
	Get(ctx context.Context, name string) (string, error)
	Put(ctx context.Context, name string, value string) error
	Delete(ctx context.Context, name string) error
}

// SecretName derives the vault key for one item's access credential
func SecretName(prefix string, clientID uuid.UUID, itemID string) string {
	return fmt.Sprintf("%s/%s/%s", prefix, clientID, itemID)
}
