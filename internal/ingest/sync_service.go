package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spending-insight/backend/internal/domain/item"
	"github.com/spending-insight/backend/internal/domain/synclog"
	"github.com/spending-insight/backend/internal/platform/provider"
	"github.com/spending-insight/backend/internal/platform/vault"
)

// SyncService pulls transactions from the aggregator provider, either
// cursor-incrementally per item or as a fixed trailing window per client.
// Each record is upserted independently, so one malformed record costs one
// row, not the batch. The item cursor is persisted only once the provider
// reports no more pages; a crash mid-run replays from the previous cursor,
// which is safe because the upsert is idempotent.
type SyncService struct {
	itemRepo     item.Repository
	secrets      vault.SecretStore
	provider     provider.Client
	upserter     Upserter
	syncLog      synclog.Repository
	secretPrefix string
	windowDays   int
	logger       *slog.Logger
}

// NewSyncService creates a new sync orchestrator
func NewSyncService(
	logger *slog.Logger,
	itemRepo item.Repository,
	secrets vault.SecretStore,
	providerClient provider.Client,
	upserter Upserter,
	syncLog synclog.Repository,
	secretPrefix string,
	windowDays int,
) *SyncService {
	return &SyncService{
		itemRepo:     itemRepo,
		secrets:      secrets,
		provider:     providerClient,
		upserter:     upserter,
		syncLog:      syncLog,
		secretPrefix: secretPrefix,
		windowDays:   windowDays,
		logger:       logger,
	}
}

// SyncItem runs the cursor-incremental loop for one item until the provider
// reports no more pages. Added and modified records are applied in page
// order; removed ids are acknowledged but retained, since downstream
// consumers prefer a stale row over a vanished one.
func (s *SyncService) SyncItem(ctx context.Context, itemID string, trigger synclog.Trigger) error {
	run := synclog.Run{
		RunID:     uuid.New(),
		ItemID:    itemID,
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}

	it, err := s.itemRepo.GetByItemID(ctx, itemID)
	if err != nil {
		return s.finishRun(ctx, run, 0, err)
	}
	run.ClientID = it.ClientID

	token, err := s.credential(ctx, it.ClientID, itemID)
	if err != nil {
		return s.finishRun(ctx, run, 0, err)
	}

	cursor := it.SyncCursor
	var pages, upserted, failed int
	for {
		page, err := s.provider.SyncTransactions(ctx, token, cursor)
		if err != nil {
			run.Pages, run.Upserted, run.Failed = pages, upserted, failed
			return s.finishRun(ctx, run, upserted, fmt.Errorf("sync page fetch failed: %w", err))
		}
		pages++

		for _, rec := range append(page.Added, page.Modified...) {
			stored, err := s.upserter.Upsert(ctx, it.ClientID, itemID, rec)
			if err != nil {
				failed++
				s.logger.Warn("Transaction upsert failed",
					"item_id", itemID,
					"external_tx_id", rec.ExternalID,
					"error", err,
				)
				continue
			}
			if stored {
				upserted++
			}
		}
		if len(page.Removed) > 0 {
			s.logger.Info("Provider reported removed transactions, retaining rows",
				"item_id", itemID, "count", len(page.Removed))
		}

		cursor = page.NextCursor
		if !page.HasMore {
			break
		}
	}

	if err := s.itemRepo.SaveCursor(ctx, itemID, cursor); err != nil {
		run.Pages, run.Upserted, run.Failed = pages, upserted, failed
		return s.finishRun(ctx, run, upserted, fmt.Errorf("failed to persist sync cursor: %w", err))
	}

	run.Pages, run.Upserted, run.Failed = pages, upserted, failed
	s.logger.Info("Incremental sync completed",
		"item_id", itemID,
		"trigger", string(trigger),
		"pages", pages,
		"upserted", upserted,
		"failed", failed,
	)
	return s.finishRun(ctx, run, upserted, nil)
}

// SyncWindow pulls the trailing window for the client's newest active item
// and returns the number of rows written.
func (s *SyncService) SyncWindow(ctx context.Context, clientID uuid.UUID) (int, error) {
	run := synclog.Run{
		RunID:     uuid.New(),
		ClientID:  clientID,
		Trigger:   synclog.TriggerOnDemand,
		StartedAt: time.Now().UTC(),
	}

	it, err := s.itemRepo.NewestActive(ctx, clientID)
	if err != nil {
		_ = s.finishRun(ctx, run, 0, err)
		return 0, err
	}
	run.ItemID = it.ItemID

	token, err := s.credential(ctx, clientID, it.ItemID)
	if err != nil {
		_ = s.finishRun(ctx, run, 0, err)
		return 0, err
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -s.windowDays)
	records, err := s.provider.GetTransactions(ctx, token, start, end)
	if err != nil {
		_ = s.finishRun(ctx, run, 0, fmt.Errorf("window fetch failed: %w", err))
		return 0, err
	}

	var upserted, failed int
	for _, rec := range records {
		stored, err := s.upserter.Upsert(ctx, clientID, it.ItemID, rec)
		if err != nil {
			failed++
			s.logger.Warn("Transaction upsert failed",
				"item_id", it.ItemID,
				"external_tx_id", rec.ExternalID,
				"error", err,
			)
			continue
		}
		if stored {
			upserted++
		}
	}

	run.Pages, run.Upserted, run.Failed = 1, upserted, failed
	s.logger.Info("Window sync completed",
		"client_id", clientID.String(),
		"item_id", it.ItemID,
		"window_days", s.windowDays,
		"upserted", upserted,
		"failed", failed,
	)
	if err := s.finishRun(ctx, run, upserted, nil); err != nil {
		return upserted, err
	}
	return upserted, nil
}

// credential resolves the vault secret for an item
func (s *SyncService) credential(ctx context.Context, clientID uuid.UUID, itemID string) (string, error) {
	token, err := s.secrets.Get(ctx, vault.SecretName(s.secretPrefix, clientID, itemID))
	if err != nil {
		if err == vault.ErrSecretNotFound {
			return "", ErrNoCredential{ItemID: itemID}
		}
		return "", fmt.Errorf("failed to read access credential: %w", err)
	}
	return token, nil
}

// finishRun stamps and records the audit document. The audit write is
// best-effort: a Mongo outage must not fail a sync that already committed
// its rows.
func (s *SyncService) finishRun(ctx context.Context, run synclog.Run, upserted int, runErr error) error {
	run.FinishedAt = time.Now().UTC()
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := s.syncLog.Record(ctx, &run); err != nil {
		s.logger.Warn("Failed to record sync run", "run_id", run.RunID, "item_id", run.ItemID, "error", err)
	}
	return runErr
}
