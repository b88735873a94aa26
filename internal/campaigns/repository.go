package campaigns

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the interface for campaign storage.
type Repository interface {
	// PauseActiveForClient pauses every active campaign belonging to the
	// client, leaving paused and completed campaigns untouched. Returns the
	// number of campaigns paused.
	PauseActiveForClient(ctx context.Context, clientID string) (int64, error)
}

// PostgresRepository stores campaigns in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("campaigns: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// PauseActiveForClient implements Repository.
func (r *PostgresRepository) PauseActiveForClient(ctx context.Context, clientID string) (int64, error) {
	query := `
		UPDATE campaigns
		SET status = 'paused'
		WHERE client_id = $1 AND status = 'active'
	`
	ct, err := r.pool.Exec(ctx, query, clientID)
	if err != nil {
		return 0, fmt.Errorf("campaigns: pause active: %w", err)
	}
	return ct.RowsAffected(), nil
}
