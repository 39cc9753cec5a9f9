package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/spending-insight/backend/internal/domain/shared"
)

// WorkerPoolSyncService bounds how many item syncs run concurrently. Pages
// within one item stay sequential; the pool only parallelizes across items.
type WorkerPoolSyncService struct {
	baseService SyncProcessor
	pool        *ants.Pool
	logger      *slog.Logger
	mu          sync.Mutex
	results     map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolSyncService(
	baseService SyncProcessor,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolSyncService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolSyncService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// ProcessSync submits a sync event to the worker pool and waits for its
// result, so the consumer's offset commit still reflects the real outcome.
// A second event for an item already in flight is dropped: the running sync
// will pick up whatever the new event announced.
func (s *WorkerPoolSyncService) ProcessSync(ctx context.Context, event *shared.SyncEvent) error {
	itemID := event.ItemID

	resultChan := make(chan error, 1)

	s.mu.Lock()
	if _, inFlight := s.results[itemID]; inFlight {
		s.mu.Unlock()
		s.logger.Info("Sync already in flight for item, dropping event", "item_id", itemID)
		return nil
	}
	s.results[itemID] = resultChan
	s.mu.Unlock()

	eventCopy := *event

	err := s.pool.Submit(func() {
		err := s.baseService.ProcessSync(ctx, &eventCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, itemID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		s.mu.Lock()
		delete(s.results, itemID)
		close(resultChan)
		s.mu.Unlock()

		s.logger.Error("Failed to submit sync to worker pool",
			"item_id", itemID,
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolSyncService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolSyncService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolSyncService) Capacity() int {
	return s.pool.Cap()
}
