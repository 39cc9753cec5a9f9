// Package transaction models one posted-or-pending financial event observed
// from the aggregator provider, plus the derivation rules that normalize a
// raw provider record before it is stored.
package transaction

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status of a transaction as reported by the provider
type Status string

const (
	StatusPending Status = "pending"
	StatusPosted  Status = "posted"
)

// DefaultCategory is stored when the provider supplies no personal finance
// category for a transaction.
const DefaultCategory = "Uncategorized"

// Transaction is one stored financial event. (ClientID, ExternalID) is the
// idempotency key; NaturalKeyHash is a secondary fingerprint kept for future
// dedup when the external id is unavailable, not an enforced constraint.
type Transaction struct {
	ID             int64      `json:"id"`
	ClientID       uuid.UUID  `json:"client_id"`
	AccountID      int64      `json:"account_id"`
	SourceItemID   string     `json:"source_item_id"`
	ExternalID     string     `json:"external_id"` // Provider transaction id
	AmountCents    int64      `json:"amount_cents"`
	AuthDate       *time.Time `json:"auth_date"`
	PostDate       *time.Time `json:"post_date"`
	Status         Status     `json:"status"`
	MerchantNorm   *string    `json:"merchant_norm"`
	MerchantRaw    *string    `json:"merchant_raw"`
	Category       *string    `json:"category"` // Nil means unknown; stored as DefaultCategory on first insert
	NaturalKeyHash string     `json:"natural_key_hash"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ListRow is the read model for transaction listings, joined with the
// account's display name.
type ListRow struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	AccountName string    `json:"account_name"`
	Merchant    string    `json:"merchant"`
	Category    string    `json:"category"`
	AmountCents int64     `json:"amount_cents"`
	PostDate    time.Time `json:"post_date"`
	Status      string    `json:"status"`
}

// ToMinorUnits converts a provider amount in major units to signed minor
// units, rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// NormalizeMerchant lowercases, replaces every non-alphanumeric rune with a
// space, collapses whitespace and trims. Empty input normalizes to "".
func NormalizeMerchant(s string) string {
	lowered := strings.ToLower(s)
	mapped := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return ' '
	}, lowered)
	return strings.Join(strings.Fields(mapped), " ")
}

// CategoryLabel turns a provider personal-finance primary category (e.g.
// FOOD_AND_DRINK) into a display label. Returns "" when the input is blank;
// the caller decides whether to fall back to DefaultCategory.
func CategoryLabel(primary string) string {
	trimmed := strings.TrimSpace(primary)
	if trimmed == "" {
		return ""
	}
	return strings.ReplaceAll(trimmed, "_", " ")
}

// NaturalKeyHash derives the dedup fingerprint from the fields that survive
// an external-id change: owner, account, amount, posting date and raw
// merchant string.
func NaturalKeyHash(clientID uuid.UUID, accountID int64, amountCents int64, postDate *time.Time, merchantRaw string) string {
	date := ""
	if postDate != nil {
		date = postDate.Format("2006-01-02")
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%d|%d|%s|%s", clientID, accountID, amountCents, date, merchantRaw)))
	return hex.EncodeToString(sum[:])
}
