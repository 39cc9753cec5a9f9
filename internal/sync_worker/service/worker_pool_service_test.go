package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spending-insight/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) ProcessSync(ctx context.Context, event *shared.SyncEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestWorkerPoolSyncService_ProcessSync(t *testing.T) {
	logger := newTestLogger()
	ctx := context.Background()

	event := &shared.SyncEvent{ItemID: "item-1", WebhookType: "TRANSACTIONS"}

	t.Run("successful processing", func(t *testing.T) {
		base := new(MockProcessor)
		base.On("ProcessSync", mock.Anything, mock.MatchedBy(func(e *shared.SyncEvent) bool {
			return e.ItemID == "item-1"
		})).Return(nil).Once()

		svc, err := NewWorkerPoolSyncService(base, WorkerPoolConfig{Size: 2}, logger)
		require.NoError(t, err)
		defer svc.Shutdown()

		assert.NoError(t, svc.ProcessSync(ctx, event))
		base.AssertExpectations(t)
	})

	t.Run("processing error reaches the caller", func(t *testing.T) {
		base := new(MockProcessor)
		base.On("ProcessSync", mock.Anything, mock.Anything).Return(errors.New("sync failed")).Once()

		svc, err := NewWorkerPoolSyncService(base, WorkerPoolConfig{Size: 2}, logger)
		require.NoError(t, err)
		defer svc.Shutdown()

		err = svc.ProcessSync(ctx, event)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sync failed")
	})

	t.Run("second event for in-flight item is dropped", func(t *testing.T) {
		base := new(MockProcessor)
		release := make(chan struct{})
		base.On("ProcessSync", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			<-release
		}).Return(nil).Once()

		svc, err := NewWorkerPoolSyncService(base, WorkerPoolConfig{Size: 2}, logger)
		require.NoError(t, err)
		defer svc.Shutdown()

		firstDone := make(chan error, 1)
		go func() {
			firstDone <- svc.ProcessSync(ctx, event)
		}()

		// Wait for the first sync to claim the item.
		require.Eventually(t, func() bool {
			return svc.Running() == 1
		}, time.Second, 5*time.Millisecond)

		// The duplicate commits immediately without a second sync.
		assert.NoError(t, svc.ProcessSync(ctx, event))

		close(release)
		assert.NoError(t, <-firstDone)
		base.AssertNumberOfCalls(t, "ProcessSync", 1)
	})
}

func TestWorkerPoolSyncService_Concurrency(t *testing.T) {
	logger := newTestLogger()
	base := new(MockProcessor)

	svc, err := NewWorkerPoolSyncService(base, WorkerPoolConfig{Size: 5}, logger)
	require.NoError(t, err)
	defer svc.Shutdown()

	var mu sync.Mutex
	counter := 0
	base.On("ProcessSync", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		counter++
		mu.Unlock()
	}).Return(nil)

	numEvents := 10
	var wg sync.WaitGroup
	wg.Add(numEvents)
	for i := 0; i < numEvents; i++ {
		go func(i int) {
			defer wg.Done()
			event := &shared.SyncEvent{ItemID: "item-" + string(rune('a'+i))}
			assert.NoError(t, svc.ProcessSync(context.Background(), event))
		}(i)
	}
	wg.Wait()

	mu.Lock()
	assert.Equal(t, numEvents, counter)
	mu.Unlock()

	assert.Equal(t, 5, svc.Capacity())
}
