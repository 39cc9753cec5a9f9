package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spending-insight/backend/internal/domain/account"
	"github.com/spending-insight/backend/internal/domain/transaction"
	"github.com/spending-insight/backend/internal/platform/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTxUpsertService_Upsert(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()
	itemID := "item-1"
	postDate := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("skips record without external transaction id", func(t *testing.T) {
		svc := NewTxUpsertService(newTestLogger(), new(MockAccountRepo), new(MockTransactionRepo))

		stored, err := svc.Upsert(ctx, clientID, itemID, provider.Transaction{
			ExternalAccountID: "ext-acc",
		})
		require.NoError(t, err)
		assert.False(t, stored)
	})

	t.Run("skips record without external account id", func(t *testing.T) {
		svc := NewTxUpsertService(newTestLogger(), new(MockAccountRepo), new(MockTransactionRepo))

		stored, err := svc.Upsert(ctx, clientID, itemID, provider.Transaction{
			ExternalID: "ext-tx",
		})
		require.NoError(t, err)
		assert.False(t, stored)
	})

	t.Run("skips record with no linkage", func(t *testing.T) {
		accountRepo := new(MockAccountRepo)
		accountRepo.On("LatestLink", ctx, "ext-acc").Return(nil, nil).Once()

		svc := NewTxUpsertService(newTestLogger(), accountRepo, new(MockTransactionRepo))

		stored, err := svc.Upsert(ctx, clientID, itemID, provider.Transaction{
			ExternalID:        "ext-tx",
			ExternalAccountID: "ext-acc",
		})
		require.NoError(t, err)
		assert.False(t, stored)
		accountRepo.AssertExpectations(t)
	})

	t.Run("derives and stores normalized record", func(t *testing.T) {
		accountRepo := new(MockAccountRepo)
		accountRepo.On("LatestLink", ctx, "ext-acc").
			Return(&account.Link{AccountID: 7}, nil).Once()

		txRepo := new(MockTransactionRepo)
		txRepo.On("Upsert", ctx, mock.MatchedBy(func(tx *transaction.Transaction) bool {
			return tx.ClientID == clientID &&
				tx.AccountID == 7 &&
				tx.SourceItemID == itemID &&
				tx.ExternalID == "ext-tx" &&
				tx.AmountCents == 1999 &&
				tx.Status == transaction.StatusPosted &&
				tx.AuthDate != nil && tx.AuthDate.Equal(postDate) &&
				tx.MerchantRaw != nil && *tx.MerchantRaw == "Starbucks" &&
				tx.MerchantNorm != nil && *tx.MerchantNorm == "starbucks" &&
				tx.Category != nil && *tx.Category == "FOOD AND DRINK" &&
				tx.NaturalKeyHash != ""
		})).Return(nil).Once()

		svc := NewTxUpsertService(newTestLogger(), accountRepo, txRepo)

		stored, err := svc.Upsert(ctx, clientID, itemID, provider.Transaction{
			ExternalID:        "ext-tx",
			ExternalAccountID: "ext-acc",
			Amount:            19.99,
			Date:              &postDate,
			MerchantName:      "Starbucks",
			Name:              "STARBUCKS STORE 123",
			Category:          "FOOD_AND_DRINK",
		})
		require.NoError(t, err)
		assert.True(t, stored)
		accountRepo.AssertExpectations(t)
		txRepo.AssertExpectations(t)
	})

	t.Run("pending record falls back to transaction name and nil category", func(t *testing.T) {
		accountRepo := new(MockAccountRepo)
		accountRepo.On("LatestLink", ctx, "ext-acc").
			Return(&account.Link{AccountID: 7}, nil).Once()

		txRepo := new(MockTransactionRepo)
		txRepo.On("Upsert", ctx, mock.MatchedBy(func(tx *transaction.Transaction) bool {
			return tx.Status == transaction.StatusPending &&
				tx.MerchantRaw != nil && *tx.MerchantRaw == "AMZN Mktp US" &&
				tx.Category == nil &&
				tx.AuthDate == nil && tx.PostDate == nil
		})).Return(nil).Once()

		svc := NewTxUpsertService(newTestLogger(), accountRepo, txRepo)

		stored, err := svc.Upsert(ctx, clientID, itemID, provider.Transaction{
			ExternalID:        "ext-tx-2",
			ExternalAccountID: "ext-acc",
			Amount:            -4.56,
			Pending:           true,
			Name:              "AMZN Mktp US",
		})
		require.NoError(t, err)
		assert.True(t, stored)
		txRepo.AssertExpectations(t)
	})

	t.Run("propagates repository error", func(t *testing.T) {
		accountRepo := new(MockAccountRepo)
		accountRepo.On("LatestLink", ctx, "ext-acc").
			Return(&account.Link{AccountID: 7}, nil).Once()

		dbErr := errors.New("db down")
		txRepo := new(MockTransactionRepo)
		txRepo.On("Upsert", ctx, mock.AnythingOfType("*transaction.Transaction")).Return(dbErr).Once()

		svc := NewTxUpsertService(newTestLogger(), accountRepo, txRepo)

		stored, err := svc.Upsert(ctx, clientID, itemID, provider.Transaction{
			ExternalID:        "ext-tx",
			ExternalAccountID: "ext-acc",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.False(t, stored)
	})
}
