package vault

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSecretName(t *testing.T) {
	clientID := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	name := SecretName("plaid/access-token", clientID, "item-1")
	assert.Equal(t, "plaid/access-token/11111111-2222-3333-4444-555555555555/item-1", name)

	// Distinct items under the same client never collide.
	other := SecretName("plaid/access-token", clientID, "item-2")
	assert.NotEqual(t, name, other)
}
