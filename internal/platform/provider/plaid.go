package provider

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/spending-insight/backend/internal/config"
)

const dateLayout = "2006-01-02"

// PlaidClient implements Client against the Plaid API
type PlaidClient struct {
	api    *plaid.APIClient
	cfg    *config.PlaidConfig
	logger *slog.Logger
}

// NewPlaidClient builds a Plaid-backed provider client
func NewPlaidClient(logger *slog.Logger, cfg *config.PlaidConfig) *PlaidClient {
	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch strings.ToLower(cfg.Environment) {
	case "production":
		configuration.UseEnvironment(plaid.Production)
	default:
		configuration.UseEnvironment(plaid.Sandbox)
	}

	return &PlaidClient{
		api:    plaid.NewAPIClient(configuration),
		cfg:    cfg,
		logger: logger,
	}
}

// wrapErr converts a Plaid call failure into a *Error with whatever status
// and error detail is recoverable from the response.
func wrapErr(op string, httpResp *http.Response, err error) error {
	provErr := &Error{Op: op, Message: err.Error()}
	if httpResp != nil {
		provErr.StatusCode = httpResp.StatusCode
	}
	if plaidErr, convErr := plaid.ToPlaidError(err); convErr == nil {
		provErr.Code = plaidErr.GetErrorCode()
		provErr.Message = plaidErr.GetErrorMessage()
	}
	return provErr
}

func (c *PlaidClient) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResult, error) {
	req := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, httpResp, err := c.api.PlaidApi.ItemPublicTokenExchange(ctx).
		ItemPublicTokenExchangeRequest(*req).
		Execute()
	if err != nil {
		return nil, wrapErr("exchange", httpResp, err)
	}
	return &ExchangeResult{
		AccessToken: resp.GetAccessToken(),
		ItemID:      resp.GetItemId(),
	}, nil
}

func (c *PlaidClient) GetInstitutionID(ctx context.Context, accessToken string) (string, error) {
	req := plaid.NewItemGetRequest(accessToken)
	resp, httpResp, err := c.api.PlaidApi.ItemGet(ctx).ItemGetRequest(*req).Execute()
	if err != nil {
		return "", wrapErr("item_get", httpResp, err)
	}
	item := resp.GetItem()
	return item.GetInstitutionId(), nil
}

func (c *PlaidClient) GetAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	req := plaid.NewAccountsGetRequest(accessToken)
	resp, httpResp, err := c.api.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*req).Execute()
	if err != nil {
		return nil, wrapErr("accounts_get", httpResp, err)
	}

	raw := resp.GetAccounts()
	accounts := make([]Account, 0, len(raw))
	for _, a := range raw {
		accounts = append(accounts, Account{
			ExternalID:   a.GetAccountId(),
			Name:         a.GetName(),
			OfficialName: a.GetOfficialName(),
			Mask:         a.GetMask(),
			Subtype:      string(a.GetSubtype()),
		})
	}
	return accounts, nil
}

func (c *PlaidClient) SyncTransactions(ctx context.Context, accessToken, cursor string) (*SyncPage, error) {
	req := plaid.NewTransactionsSyncRequest(accessToken)
	if cursor != "" {
		req.SetCursor(cursor)
	}

	resp, httpResp, err := c.api.PlaidApi.TransactionsSync(ctx).
		TransactionsSyncRequest(*req).
		Execute()
	if err != nil {
		return nil, wrapErr("transactions_sync", httpResp, err)
	}

	page := &SyncPage{
		Added:      mapTransactions(resp.GetAdded()),
		Modified:   mapTransactions(resp.GetModified()),
		NextCursor: resp.GetNextCursor(),
		HasMore:    resp.GetHasMore(),
	}
	for _, r := range resp.GetRemoved() {
		page.Removed = append(page.Removed, r.GetTransactionId())
	}
	return page, nil
}

func (c *PlaidClient) GetTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]Transaction, error) {
	req := plaid.NewTransactionsGetRequest(accessToken, start.Format(dateLayout), end.Format(dateLayout))
	resp, httpResp, err := c.api.PlaidApi.TransactionsGet(ctx).
		TransactionsGetRequest(*req).
		Execute()
	if err != nil {
		return nil, wrapErr("transactions_get", httpResp, err)
	}
	return mapTransactions(resp.GetTransactions()), nil
}

func (c *PlaidClient) CreateLinkToken(ctx context.Context, clientID string) (string, error) {
	user := plaid.LinkTokenCreateRequestUser{ClientUserId: clientID}

	req := plaid.NewLinkTokenCreateRequest(
		c.cfg.ClientName,
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_US},
		user,
	)
	req.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})
	req.SetAccountFilters(plaid.LinkTokenAccountFilters{
		Depository: &plaid.DepositoryFilter{
			AccountSubtypes: []plaid.DepositoryAccountSubtype{
				plaid.DEPOSITORYACCOUNTSUBTYPE_CHECKING,
				plaid.DEPOSITORYACCOUNTSUBTYPE_SAVINGS,
			},
		},
		Credit: &plaid.CreditFilter{
			AccountSubtypes: []plaid.CreditAccountSubtype{
				plaid.CREDITACCOUNTSUBTYPE_CREDIT_CARD,
			},
		},
	})
	if c.cfg.WebhookURL != "" {
		req.SetWebhook(c.cfg.WebhookURL)
	}
	if c.cfg.RedirectURI != "" {
		req.SetRedirectUri(c.cfg.RedirectURI)
	}

	resp, httpResp, err := c.api.PlaidApi.LinkTokenCreate(ctx).
		LinkTokenCreateRequest(*req).
		Execute()
	if err != nil {
		return "", wrapErr("link_token_create", httpResp, err)
	}
	return resp.GetLinkToken(), nil
}

func (c *PlaidClient) RemoveItem(ctx context.Context, accessToken string) error {
	req := plaid.NewItemRemoveRequest(accessToken)
	_, httpResp, err := c.api.PlaidApi.ItemRemove(ctx).ItemRemoveRequest(*req).Execute()
	if err != nil {
		return wrapErr("item_remove", httpResp, err)
	}
	return nil
}

func mapTransactions(raw []plaid.Transaction) []Transaction {
	out := make([]Transaction, 0, len(raw))
	for _, t := range raw {
		pfc := t.GetPersonalFinanceCategory()
		out = append(out, Transaction{
			ExternalID:        t.GetTransactionId(),
			ExternalAccountID: t.GetAccountId(),
			Amount:            t.GetAmount(),
			Pending:           t.GetPending(),
			AuthorizedDate:    parseDate(t.GetAuthorizedDate()),
			Date:              parseDate(t.GetDate()),
			MerchantName:      t.GetMerchantName(),
			Name:              t.GetName(),
			Category:          pfc.GetPrimary(),
		})
	}
	return out
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &d
}
