package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the interface for client storage.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Client, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*Client, error)
	Suspend(ctx context.Context, id string) error
}

const clientColumns = `id, name, email, COALESCE(company_name, ''), COALESCE(stripe_customer_id, ''),
		per_minute_rate_cents, milestone_amount_cents, milestone_interval, status, created_at`

// PostgresRepository stores clients in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("clients: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// GetByID fetches a client by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByStripeCustomerID fetches the client owning a Stripe customer reference.
func (r *PostgresRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE stripe_customer_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, customerID))
}

// Suspend marks the client account suspended. Campaign pausing is handled
// separately by the campaigns repository.
func (r *PostgresRepository) Suspend(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE clients SET status = 'suspended' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clients: suspend: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*Client, error) {
	var c Client
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.CompanyName,
		&c.StripeCustomerID,
		&c.PerMinuteRateCents,
		&c.MilestoneAmountCents,
		&c.MilestoneInterval,
		&c.Status,
		&c.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("clients: select failed: %w", err)
	}
	return &c, nil
}
