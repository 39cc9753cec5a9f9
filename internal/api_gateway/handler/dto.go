package handler

// LinkTokenRequest asks for a short-lived Link token for a client
type LinkTokenRequest struct {
	ClientID string `json:"client_id" binding:"required,uuid"`
}

// LinkTokenResponse carries the Link token back to the frontend
type LinkTokenResponse struct {
	LinkToken string `json:"link_token"`
}

// ExchangeRequest carries the one-time public token produced by Link
type ExchangeRequest struct {
	ClientID    string `json:"client_id" binding:"required,uuid"`
	PublicToken string `json:"public_token" binding:"required"`
}

// ExchangeResponse reports the resulting durable linkage
type ExchangeResponse struct {
	ItemID        string `json:"item_id"`
	InstitutionID string `json:"institution_id"`
}

// SyncRequest triggers an on-demand window sync for a client
type SyncRequest struct {
	ClientID string `json:"client_id" binding:"required,uuid"`
}

// SyncResponse reports how many rows the window sync wrote
type SyncResponse struct {
	Upserted int `json:"upserted"`
}

// WebhookRequest is the provider's webhook payload; fields outside this
// subset are ignored.
type WebhookRequest struct {
	WebhookType string `json:"webhook_type" binding:"required"`
	WebhookCode string `json:"webhook_code"`
	ItemID      string `json:"item_id"`
}

// ListTransactionsParams are the query parameters of the transaction
// listing. BeforeDate and BeforeID form the keyset cursor and must be
// supplied together.
type ListTransactionsParams struct {
	ClientID   string `form:"client_id" binding:"required,uuid"`
	Limit      int    `form:"limit,default=50" binding:"min=1,max=200"`
	BeforeDate string `form:"before_date"`
	BeforeID   int64  `form:"before_id"`
}

// TransactionRow is one row of the transaction listing
type TransactionRow struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"account_id"`
	AccountName string `json:"account_name"`
	Merchant    string `json:"merchant"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
	PostDate    string `json:"post_date"`
	Status      string `json:"status"`
}

// TransactionListResponse wraps the listing rows with the cursor for the
// next page; NextBeforeDate/NextBeforeID are empty when the page was short.
type TransactionListResponse struct {
	Transactions   []TransactionRow `json:"transactions"`
	NextBeforeDate string           `json:"next_before_date,omitempty"`
	NextBeforeID   int64            `json:"next_before_id,omitempty"`
}
