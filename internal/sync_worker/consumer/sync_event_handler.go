// Package consumer adapts Kafka messages into sync work. Unparseable
// messages go to the DLQ so the partition keeps moving; processing failures
// stay uncommitted for redelivery.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spending-insight/backend/internal/domain/shared"
	"github.com/spending-insight/backend/internal/platform/messaging/producers"
	"github.com/spending-insight/backend/internal/sync_worker/service"
)

// SyncEventHandler handles incoming sync event messages from Kafka
type SyncEventHandler struct {
	processor service.SyncProcessor
	producer  producers.DeadLetterPublisher
	logger    *slog.Logger
}

// NewSyncEventHandler creates a new handler
func NewSyncEventHandler(
	logger *slog.Logger,
	processor service.SyncProcessor,
	producer producers.DeadLetterPublisher,
) *SyncEventHandler {
	return &SyncEventHandler{
		processor: processor,
		producer:  producer,
		logger:    logger,
	}
}

// HandleMessage processes Kafka messages
func (h *SyncEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.SyncEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal sync event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				return nil
			}
		}
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	if event.ItemID == "" {
		h.logger.Warn("Sync event without item id, dropping", "message_key", string(key))
		return nil
	}

	if err := h.processor.ProcessSync(ctx, &event); err != nil {
		h.logger.Error("Failed to process sync event",
			"item_id", event.ItemID,
			"error", err,
		)
		return fmt.Errorf("processing sync for item %s failed: %w", event.ItemID, err)
	}

	return nil
}
