// Package postgres provides PostgreSQL implementations of the domain
// repositories backing the identity and linkage store. Every repository can
// be rebound to an open transaction via WithTx so the link-exchange protocol
// commits atomically.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spending-insight/backend/internal/domain/client"
	"github.com/spending-insight/backend/internal/platform/persistence"
)

// ClientRepository implements the client.Repository interface for PostgreSQL
type ClientRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewClientRepository creates a new PostgreSQL client repository
func NewClientRepository(logger *slog.Logger, db *persistence.PostgresDB) client.Repository {
	return &ClientRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *ClientRepository) WithTx(tx pgx.Tx) client.Repository {
	return &ClientRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// EnsureExists inserts the client row if absent
func (r *ClientRepository) EnsureExists(ctx context.Context, clientID uuid.UUID) error {
	query := `
		INSERT INTO client (client_id)
		VALUES ($1)
		ON CONFLICT (client_id) DO NOTHING
	`

	_, err := r.querier.Exec(ctx, query, clientID)
	if err != nil {
		r.logger.Error("Failed to ensure client exists", "client_id", clientID.String(), "error", err)
		return fmt.Errorf("failed to ensure client exists: %w", err)
	}

	return nil
}
