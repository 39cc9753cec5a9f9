// Package mongo provides the MongoDB implementation of the sync audit log.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spending-insight/backend/internal/domain/synclog"
)

const (
	// SyncRunCollectionName is the name of the sync run collection in MongoDB
	SyncRunCollectionName = "sync_runs"
)

// SyncLogRepository implements the synclog.Repository interface for MongoDB
type SyncLogRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewSyncLogRepository creates a new MongoDB sync log repository
func NewSyncLogRepository(logger *slog.Logger, db *mongo.Database) synclog.Repository {
	return &SyncLogRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends one sync run document
func (r *SyncLogRepository) Record(ctx context.Context, run *synclog.Run) error {
	collection := r.db.Collection(SyncRunCollectionName)

	_, err := collection.InsertOne(ctx, run)
	if err != nil {
		r.logger.Error("Failed to record sync run",
			"run_id", run.RunID.String(),
			"item_id", run.ItemID,
			"error", err)
		return fmt.Errorf("failed to record sync run: %w", err)
	}

	return nil
}

// ListByItem returns the most recent runs for an item, newest first
func (r *SyncLogRepository) ListByItem(ctx context.Context, itemID string, limit int) ([]*synclog.Run, error) {
	collection := r.db.Collection(SyncRunCollectionName)

	filter := bson.M{"item_id": itemID}
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list sync runs", "item_id", itemID, "error", err)
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer cursor.Close(ctx)

	var runs []*synclog.Run
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("failed to decode sync runs: %w", err)
	}

	return runs, nil
}
