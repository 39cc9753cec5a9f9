// Package refresher periodically re-syncs every active item, catching data
// the provider never announced over webhooks.
package refresher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/spending-insight/backend/internal/domain/item"
	"github.com/spending-insight/backend/internal/domain/shared"
	"github.com/spending-insight/backend/internal/sync_worker/service"
)

// Refresher drives periodic full refreshes of all active items
type Refresher struct {
	itemRepo  item.Repository
	processor service.SyncProcessor
	interval  time.Duration
	logger    *slog.Logger
}

// NewRefresher creates a new periodic refresher
func NewRefresher(logger *slog.Logger, itemRepo item.Repository, processor service.SyncProcessor, interval time.Duration) *Refresher {
	return &Refresher{
		itemRepo:  itemRepo,
		processor: processor,
		interval:  interval,
		logger:    logger,
	}
}

// Start runs the refresh loop until the context is canceled. The first
// sweep happens one full interval after startup, since webhook-driven syncs
// cover the fresh data in the meantime.
func (r *Refresher) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("Context canceled, stopping refresher")
				return
			case <-ticker.C:
				r.sweep(ctx)
			}
		}
	}()
}

// sweep submits one refresh sync per active item. Failures are logged per
// item; one failing item never blocks the rest of the sweep.
func (r *Refresher) sweep(ctx context.Context) {
	items, err := r.itemRepo.ListActive(ctx)
	if err != nil {
		r.logger.Error("Failed to list active items for refresh", "error", err)
		return
	}

	r.logger.Info("Starting periodic refresh sweep", "items", len(items))

	// ProcessSync blocks until the pooled sync finishes, so each item gets
	// its own goroutine and the pool bounds the real concurrency.
	var wg sync.WaitGroup
	for _, it := range items {
		wg.Add(1)
		go func(itemID string, clientID string) {
			defer wg.Done()
			event := shared.SyncEvent{
				ItemID:     itemID,
				ReceivedAt: time.Now().UTC(),
			}
			if err := r.processor.ProcessSync(ctx, &event); err != nil {
				r.logger.Error("Refresh sync failed",
					"item_id", itemID,
					"client_id", clientID,
					"error", err,
				)
			}
		}(it.ItemID, it.ClientID.String())
	}
	wg.Wait()
}
