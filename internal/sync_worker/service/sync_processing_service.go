package service

import (
	"context"
	"log/slog"

	"github.com/spending-insight/backend/internal/domain/shared"
	"github.com/spending-insight/backend/internal/domain/synclog"
	"github.com/spending-insight/backend/internal/ingest"
)

// SyncProcessingService runs one incremental sync per event. The trigger is
// derived from the event: an event carrying webhook metadata came from the
// provider, an empty one from the periodic refresher.
type SyncProcessingService struct {
	syncer ingest.Syncer
	logger *slog.Logger
}

// NewSyncProcessingService creates a new sync processing service
func NewSyncProcessingService(logger *slog.Logger, syncer ingest.Syncer) *SyncProcessingService {
	return &SyncProcessingService{
		syncer: syncer,
		logger: logger,
	}
}

// ProcessSync runs the cursor-incremental sync for the event's item
func (s *SyncProcessingService) ProcessSync(ctx context.Context, event *shared.SyncEvent) error {
	trigger := synclog.TriggerRefresh
	if event.WebhookType != "" {
		trigger = synclog.TriggerWebhook
	}

	s.logger.Info("Processing sync event",
		"item_id", event.ItemID,
		"trigger", string(trigger),
		"webhook_code", event.WebhookCode,
	)

	return s.syncer.SyncItem(ctx, event.ItemID, trigger)
}
