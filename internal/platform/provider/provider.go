// Package provider defines the consumed interface of the account-aggregation
// provider. Services depend on the Client interface; the concrete Plaid
// adapter lives alongside it. Responses are assumed reliable modulo explicit
// error values, and every call is a potential multi-second blocking point.
package provider

import (
	"context"
	"fmt"
	"time"
)

// Error carries the provider's status and message for a failed call. No
// partial state is ever committed on the strength of an erroring response.
type Error struct {
	Op         string // Which provider operation failed
	StatusCode int    // HTTP status from the provider, 0 when unavailable
	Code       string // Provider error code, when parseable
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s failed: status=%d code=%s: %s", e.Op, e.StatusCode, e.Code, e.Message)
}

// ExchangeResult is the durable credential pair produced by a token exchange
type ExchangeResult struct {
	AccessToken string
	ItemID      string
}

// Account is one account as observed from the provider
type Account struct {
	ExternalID   string
	Name         string
	OfficialName string
	Mask         string
	Subtype      string
}

// DisplayName prefers the official name when present
func (a Account) DisplayName() string {
	if a.OfficialName != "" {
		return a.OfficialName
	}
	return a.Name
}

// Transaction is one raw transaction record from the provider, before any
// normalization.
type Transaction struct {
	ExternalID        string
	ExternalAccountID string
	Amount            float64 // Major units; sign follows the provider's convention
	Pending           bool
	AuthorizedDate    *time.Time
	Date              *time.Time // Posting date
	MerchantName      string     // May be empty; Name is the raw fallback
	Name              string
	Category          string // Personal finance primary category, "" when absent
}

// RawMerchant returns the merchant string to store: the merchant name when
// the provider resolved one, else the raw transaction name.
func (t Transaction) RawMerchant() string {
	if t.MerchantName != "" {
		return t.MerchantName
	}
	return t.Name
}

// SyncPage is one page of incremental changes
type SyncPage struct {
	Added      []Transaction
	Modified   []Transaction
	Removed    []string // External transaction ids
	NextCursor string
	HasMore    bool
}

// Client is the typed RPC surface of the aggregator provider
type Client interface {
	// ExchangePublicToken swaps a one-time link token for a durable access
	// credential and item id.
	ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error)

	// GetInstitutionID fetches the institution backing an item
	GetInstitutionID(ctx context.Context, accessToken string) (string, error)

	// GetAccounts lists the accounts reachable through an item
	GetAccounts(ctx context.Context, accessToken string) ([]Account, error)

	// SyncTransactions returns the next page of incremental changes after
	// cursor; an empty cursor starts from the beginning of history.
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*SyncPage, error)

	// GetTransactions pulls all transactions in a date window
	GetTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]Transaction, error)

	// CreateLinkToken creates a short-lived token for the Link flow
	CreateLinkToken(ctx context.Context, clientID string) (string, error)

	// RemoveItem revokes an access credential upstream
	RemoveItem(ctx context.Context, accessToken string) error
}
