// Package synclog records one document per sync run for auditing: what
// triggered it, how many pages and records it covered, and how it ended.
package synclog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Trigger identifies what started a sync run
type Trigger string

const (
	TriggerWebhook  Trigger = "webhook"
	TriggerOnDemand Trigger = "on_demand"
	TriggerRefresh  Trigger = "refresh"
)

// Run is one sync run audit record
type Run struct {
	RunID      uuid.UUID `bson:"run_id" json:"run_id"`
	ClientID   uuid.UUID `bson:"client_id" json:"client_id"`
	ItemID     string    `bson:"item_id" json:"item_id"`
	Trigger    Trigger   `bson:"trigger" json:"trigger"`
	StartedAt  time.Time `bson:"started_at" json:"started_at"`
	FinishedAt time.Time `bson:"finished_at" json:"finished_at"`
	Pages      int       `bson:"pages" json:"pages"`
	Upserted   int       `bson:"upserted" json:"upserted"`
	Failed     int       `bson:"failed" json:"failed"`
	Error      string    `bson:"error,omitempty" json:"error,omitempty"`
}

// Repository defines sync run audit persistence. Writes are best-effort:
// callers log failures but never propagate them.
type Repository interface {
	Record(ctx context.Context, run *Run) error
	ListByItem(ctx context.Context, itemID string, limit int) ([]*Run, error)
}
