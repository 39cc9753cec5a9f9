package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/spending-insight/backend/internal/domain/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestTransactionRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	clientID := uuid.New()
	postDate := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	query := `INSERT INTO transactions \(`

	t.Run("full record", func(t *testing.T) {
		tx := &transaction.Transaction{
			ClientID:       clientID,
			AccountID:      7,
			SourceItemID:   "item-1",
			ExternalID:     "tx-1",
			AmountCents:    1999,
			AuthDate:       &postDate,
			PostDate:       &postDate,
			Status:         transaction.StatusPosted,
			MerchantNorm:   strPtr("starbucks"),
			MerchantRaw:    strPtr("Starbucks"),
			Category:       strPtr("FOOD AND DRINK"),
			NaturalKeyHash: "abc123",
		}

		mock.ExpectExec(query).
			WithArgs(
				tx.ClientID, tx.AccountID, tx.SourceItemID, tx.ExternalID,
				tx.AmountCents, tx.AuthDate, tx.PostDate, string(tx.Status),
				tx.MerchantNorm, tx.MerchantRaw, tx.NaturalKeyHash, tx.Category,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Upsert(ctx, tx)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil category passed through as NULL", func(t *testing.T) {
		tx := &transaction.Transaction{
			ClientID:       clientID,
			AccountID:      7,
			SourceItemID:   "item-1",
			ExternalID:     "tx-2",
			AmountCents:    -500,
			Status:         transaction.StatusPending,
			NaturalKeyHash: "def456",
		}

		mock.ExpectExec(query).
			WithArgs(
				tx.ClientID, tx.AccountID, tx.SourceItemID, tx.ExternalID,
				tx.AmountCents, (*time.Time)(nil), (*time.Time)(nil), string(tx.Status),
				(*string)(nil), (*string)(nil), tx.NaturalKeyHash, (*string)(nil),
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Upsert(ctx, tx)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		tx := &transaction.Transaction{ClientID: clientID, ExternalID: "tx-3", Status: transaction.StatusPosted}
		dbErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(
				tx.ClientID, tx.AccountID, tx.SourceItemID, tx.ExternalID,
				tx.AmountCents, (*time.Time)(nil), (*time.Time)(nil), string(tx.Status),
				(*string)(nil), (*string)(nil), tx.NaturalKeyHash, (*string)(nil),
			).
			WillReturnError(dbErr)

		err := repo.Upsert(ctx, tx)
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_ReassignAccount(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	clientID := uuid.New()

	mock.ExpectExec(`UPDATE transactions\s+SET account_id = \$1`).
		WithArgs(int64(10), clientID, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 42))

	moved, err := repo.ReassignAccount(ctx, clientID, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(42), moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_ReassignItems(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	clientID := uuid.New()

	mock.ExpectExec(`UPDATE transactions\s+SET source_item_id = \$1`).
		WithArgs("item-new", clientID, "ins_1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 17))

	moved, err := repo.ReassignItems(ctx, clientID, "ins_1", "item-new")
	require.NoError(t, err)
	assert.Equal(t, int64(17), moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_ListByClient(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &TransactionRepository{querier: mock, logger: newTestLogger()}
	clientID := uuid.New()
	postDate := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	columns := []string{"id", "account_id", "name", "merchant_raw", "category", "amount_cents", "post_date", "status"}

	t.Run("first page", func(t *testing.T) {
		rows := pgxmock.NewRows(columns).
			AddRow(int64(2), int64(7), "Checking", "Starbucks", "FOOD AND DRINK", int64(1999), postDate, "posted").
			AddRow(int64(1), int64(7), "Checking", "", "Uncategorized", int64(-500), postDate, "pending")

		mock.ExpectQuery(`SELECT t\.id, t\.account_id, a\.name`).
			WithArgs(clientID, 2).
			WillReturnRows(rows)

		list, err := repo.ListByClient(ctx, clientID, 2, nil, nil)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, int64(2), list[0].ID)
		assert.Equal(t, "Starbucks", list[0].Merchant)
		assert.Equal(t, "Uncategorized", list[1].Category)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("keyset page", func(t *testing.T) {
		beforeID := int64(2)
		rows := pgxmock.NewRows(columns).
			AddRow(int64(1), int64(7), "Checking", "", "Uncategorized", int64(-500), postDate, "pending")

		mock.ExpectQuery(`SELECT t\.id, t\.account_id, a\.name`).
			WithArgs(clientID, postDate, beforeID, 2).
			WillReturnRows(rows)

		list, err := repo.ListByClient(ctx, clientID, 2, &postDate, &beforeID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, int64(1), list[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result", func(t *testing.T) {
		mock.ExpectQuery(`SELECT t\.id, t\.account_id, a\.name`).
			WithArgs(clientID, 50).
			WillReturnRows(pgxmock.NewRows(columns))

		list, err := repo.ListByClient(ctx, clientID, 50, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
