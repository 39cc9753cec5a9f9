package ingest

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spending-insight/backend/internal/domain/account"
	"github.com/spending-insight/backend/internal/domain/client"
	"github.com/spending-insight/backend/internal/domain/item"
	"github.com/spending-insight/backend/internal/domain/synclog"
	"github.com/spending-insight/backend/internal/domain/transaction"
	"github.com/spending-insight/backend/internal/platform/provider"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeTxRunner runs the transactional function directly with a nil tx; the
// repository mocks return themselves from WithTx, so no real tx is needed.
type fakeTxRunner struct {
	err error
}

func (f *fakeTxRunner) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type MockProviderClient struct {
	mock.Mock
}

func (m *MockProviderClient) ExchangePublicToken(ctx context.Context, publicToken string) (*provider.ExchangeResult, error) {
	args := m.Called(ctx, publicToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.ExchangeResult), args.Error(1)
}

func (m *MockProviderClient) GetInstitutionID(ctx context.Context, accessToken string) (string, error) {
	args := m.Called(ctx, accessToken)
	return args.String(0), args.Error(1)
}

func (m *MockProviderClient) GetAccounts(ctx context.Context, accessToken string) ([]provider.Account, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.Account), args.Error(1)
}

func (m *MockProviderClient) SyncTransactions(ctx context.Context, accessToken, cursor string) (*provider.SyncPage, error) {
	args := m.Called(ctx, accessToken, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.SyncPage), args.Error(1)
}

func (m *MockProviderClient) GetTransactions(ctx context.Context, accessToken string, start, end time.Time) ([]provider.Transaction, error) {
	args := m.Called(ctx, accessToken, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.Transaction), args.Error(1)
}

func (m *MockProviderClient) CreateLinkToken(ctx context.Context, clientID string) (string, error) {
	args := m.Called(ctx, clientID)
	return args.String(0), args.Error(1)
}

func (m *MockProviderClient) RemoveItem(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

type MockSecretStore struct {
	mock.Mock
}

func (m *MockSecretStore) Get(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockSecretStore) Put(ctx context.Context, name string, value string) error {
	args := m.Called(ctx, name, value)
	return args.Error(0)
}

func (m *MockSecretStore) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

type MockClientRepo struct {
	mock.Mock
}

func (m *MockClientRepo) EnsureExists(ctx context.Context, clientID uuid.UUID) error {
	args := m.Called(ctx, clientID)
	return args.Error(0)
}

func (m *MockClientRepo) WithTx(tx pgx.Tx) client.Repository {
	return m
}

type MockItemRepo struct {
	mock.Mock
}

func (m *MockItemRepo) Upsert(ctx context.Context, it *item.Item) error {
	args := m.Called(ctx, it)
	return args.Error(0)
}

func (m *MockItemRepo) GetByItemID(ctx context.Context, itemID string) (*item.Item, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*item.Item), args.Error(1)
}

func (m *MockItemRepo) NewestActive(ctx context.Context, clientID uuid.UUID) (*item.Item, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*item.Item), args.Error(1)
}

func (m *MockItemRepo) ListActive(ctx context.Context) ([]*item.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*item.Item), args.Error(1)
}

func (m *MockItemRepo) DeactivateOthers(ctx context.Context, clientID uuid.UUID, institutionID, keepItemID string) error {
	args := m.Called(ctx, clientID, institutionID, keepItemID)
	return args.Error(0)
}

func (m *MockItemRepo) ListSuperseded(ctx context.Context, clientID uuid.UUID, institutionID, keepItemID string) ([]string, error) {
	args := m.Called(ctx, clientID, institutionID, keepItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockItemRepo) DeleteSuperseded(ctx context.Context, clientID uuid.UUID, institutionID, keepItemID string) error {
	args := m.Called(ctx, clientID, institutionID, keepItemID)
	return args.Error(0)
}

func (m *MockItemRepo) SaveCursor(ctx context.Context, itemID string, cursor string) error {
	args := m.Called(ctx, itemID, cursor)
	return args.Error(0)
}

func (m *MockItemRepo) WithTx(tx pgx.Tx) item.Repository {
	return m
}

type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) GetByExternalID(ctx context.Context, clientID uuid.UUID, externalID string) (*account.Account, error) {
	args := m.Called(ctx, clientID, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) Create(ctx context.Context, acc *account.Account) (int64, error) {
	args := m.Called(ctx, acc)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepo) Refresh(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepo) UpsertLink(ctx context.Context, link *account.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockAccountRepo) LatestLink(ctx context.Context, externalID string) (*account.Link, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Link), args.Error(1)
}

func (m *MockAccountRepo) FindMergeCandidates(ctx context.Context, clientID uuid.UUID, institutionID, mask, subtype string, excludeID int64) ([]int64, error) {
	args := m.Called(ctx, clientID, institutionID, mask, subtype, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockAccountRepo) DeleteOrphans(ctx context.Context, clientID uuid.UUID, institutionID string) (int64, error) {
	args := m.Called(ctx, clientID, institutionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepo) WithTx(tx pgx.Tx) account.Repository {
	return m
}

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Upsert(ctx context.Context, t *transaction.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTransactionRepo) ReassignAccount(ctx context.Context, clientID uuid.UUID, fromAccountID, toAccountID int64) (int64, error) {
	args := m.Called(ctx, clientID, fromAccountID, toAccountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepo) ReassignItems(ctx context.Context, clientID uuid.UUID, institutionID, newItemID string) (int64, error) {
	args := m.Called(ctx, clientID, institutionID, newItemID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepo) ListByClient(ctx context.Context, clientID uuid.UUID, limit int, beforeDate *time.Time, beforeID *int64) ([]*transaction.ListRow, error) {
	args := m.Called(ctx, clientID, limit, beforeDate, beforeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.ListRow), args.Error(1)
}

func (m *MockTransactionRepo) WithTx(tx pgx.Tx) transaction.Repository {
	return m
}

type MockSyncLogRepo struct {
	mock.Mock
}

func (m *MockSyncLogRepo) Record(ctx context.Context, run *synclog.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockSyncLogRepo) ListByItem(ctx context.Context, itemID string, limit int) ([]*synclog.Run, error) {
	args := m.Called(ctx, itemID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*synclog.Run), args.Error(1)
}

type MockUpserter struct {
	mock.Mock
}

func (m *MockUpserter) Upsert(ctx context.Context, clientID uuid.UUID, itemID string, rec provider.Transaction) (bool, error) {
	args := m.Called(ctx, clientID, itemID, rec)
	return args.Bool(0), args.Error(1)
}
