package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/spending-insight/backend/internal/domain/account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestAccountRepository_GetByExternalID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	clientID := uuid.New()
	now := time.Now()

	query := `SELECT id, client_id, institution_id, current_item_id, current_external_id,`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{
			"id", "client_id", "institution_id", "current_item_id", "current_external_id",
			"name", "mask", "subtype", "is_active", "last_seen",
		}).AddRow(int64(7), clientID, "ins_1", "item-1", "ext-1", "Checking", "4321", "checking", true, now)

		mock.ExpectQuery(query).WithArgs(clientID, "ext-1").WillReturnRows(rows)

		acc, err := repo.GetByExternalID(ctx, clientID, "ext-1")
		require.NoError(t, err)
		require.NotNil(t, acc)
		assert.Equal(t, int64(7), acc.ID)
		assert.Equal(t, "4321", acc.Mask)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss returns nil without error", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(clientID, "ext-gone").WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByExternalID(ctx, clientID, "ext-gone")
		assert.NoError(t, err)
		assert.Nil(t, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	clientID := uuid.New()

	acc := &account.Account{
		ClientID:          clientID,
		InstitutionID:     "ins_1",
		CurrentItemID:     "item-1",
		CurrentExternalID: "ext-1",
		Name:              "Checking",
		Mask:              "4321",
		Subtype:           "checking",
	}

	query := `INSERT INTO accounts \(client_id, institution_id, current_item_id, current_external_id, name, mask, subtype\)`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(acc.ClientID, acc.InstitutionID, acc.CurrentItemID, acc.CurrentExternalID, acc.Name, acc.Mask, acc.Subtype).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(10)))

		id, err := repo.Create(ctx, acc)
		require.NoError(t, err)
		assert.Equal(t, int64(10), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectQuery(query).
			WithArgs(acc.ClientID, acc.InstitutionID, acc.CurrentItemID, acc.CurrentExternalID, acc.Name, acc.Mask, acc.Subtype).
			WillReturnError(dbErr)

		_, err := repo.Create(ctx, acc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_LatestLink(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	clientID := uuid.New()
	now := time.Now()

	query := `SELECT client_id, item_id, external_account_id, account_id, last_seen`

	t.Run("returns most recent link", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"client_id", "item_id", "external_account_id", "account_id", "last_seen"}).
			AddRow(clientID, "item-1", "ext-1", int64(7), now)

		mock.ExpectQuery(query).WithArgs("ext-1").WillReturnRows(rows)

		link, err := repo.LatestLink(ctx, "ext-1")
		require.NoError(t, err)
		require.NotNil(t, link)
		assert.Equal(t, int64(7), link.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no linkage yet returns nil without error", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("ext-unknown").WillReturnError(pgx.ErrNoRows)

		link, err := repo.LatestLink(ctx, "ext-unknown")
		assert.NoError(t, err)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_FindMergeCandidates(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	clientID := uuid.New()

	query := `SELECT id\s+FROM accounts`

	t.Run("returns candidate ids excluding self", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id"}).AddRow(int64(3)).AddRow(int64(4))
		mock.ExpectQuery(query).
			WithArgs(clientID, "ins_1", "4321", "checking", int64(10)).
			WillReturnRows(rows)

		ids, err := repo.FindMergeCandidates(ctx, clientID, "ins_1", "4321", "checking", 10)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 4}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no candidates", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(clientID, "ins_1", "", "", int64(10)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}))

		ids, err := repo.FindMergeCandidates(ctx, clientID, "ins_1", "", "", 10)
		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_DeleteOrphans(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	clientID := uuid.New()

	mock.ExpectExec(`DELETE FROM accounts a`).
		WithArgs(clientID, "ins_1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	deleted, err := repo.DeleteOrphans(ctx, clientID, "ins_1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
