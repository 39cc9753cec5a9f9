package service

import (
	"context"

	"github.com/spending-insight/backend/internal/domain/shared"
)

// SyncProcessor defines the interface for processing sync events
type SyncProcessor interface {
	ProcessSync(ctx context.Context, event *shared.SyncEvent) error
}
