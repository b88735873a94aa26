package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresUsageRepository stores usage records in the relational database.
type PostgresUsageRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUsageRepository initializes a repo backed by pgxpool.
func NewPostgresUsageRepository(pool *pgxpool.Pool) *PostgresUsageRepository {
	if pool == nil {
		panic("billing: pgx pool required")
	}
	return &PostgresUsageRepository{pool: pool}
}

// Create implements UsageRepository. The unique constraint on call_id makes
// call_ended redelivery a no-op.
func (r *PostgresUsageRepository) Create(ctx context.Context, u *UsageRecord) (*UsageRecord, bool, error) {
	id := uuid.New()
	query := `
		INSERT INTO usage_records (id, client_id, call_id, minutes, amount_cents, billing_period)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (call_id) DO NOTHING
	`
	ct, err := r.pool.Exec(ctx, query, id, u.ClientID, u.CallID, u.Minutes, u.AmountCents, u.BillingPeriod)
	if err != nil {
		return nil, false, fmt.Errorf("billing: insert usage record: %w", err)
	}
	created := ct.RowsAffected() > 0

	out := *u
	out.ID = id.String()
	if !created {
		query = `SELECT id, minutes, amount_cents, billing_period, billed FROM usage_records WHERE call_id = $1`
		if err := r.pool.QueryRow(ctx, query, u.CallID).Scan(
			&out.ID, &out.Minutes, &out.AmountCents, &out.BillingPeriod, &out.Billed); err != nil {
			return nil, false, fmt.Errorf("billing: select usage record: %w", err)
		}
	}
	return &out, created, nil
}

// ListUnbilled implements UsageRepository.
func (r *PostgresUsageRepository) ListUnbilled(ctx context.Context, clientID, period string) ([]UsageRecord, error) {
	query := `
		SELECT id, client_id, call_id, minutes, amount_cents, billing_period, billed, COALESCE(invoice_id::text, ''), created_at
		FROM usage_records
		WHERE client_id = $1 AND billing_period = $2 AND NOT billed
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, clientID, period)
	if err != nil {
		return nil, fmt.Errorf("billing: list unbilled usage: %w", err)
	}
	defer rows.Close()

	var out []UsageRecord
	for rows.Next() {
		var u UsageRecord
		if err := rows.Scan(&u.ID, &u.ClientID, &u.CallID, &u.Minutes, &u.AmountCents,
			&u.BillingPeriod, &u.Billed, &u.InvoiceID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("billing: scan usage record: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: list unbilled usage: %w", err)
	}
	return out, nil
}

// AssignInvoice implements UsageRepository.
func (r *PostgresUsageRepository) AssignInvoice(ctx context.Context, recordIDs []string, invoiceID string) error {
	if len(recordIDs) == 0 {
		return nil
	}
	query := `UPDATE usage_records SET invoice_id = $2 WHERE id = ANY($1)`
	if _, err := r.pool.Exec(ctx, query, recordIDs, invoiceID); err != nil {
		return fmt.Errorf("billing: assign invoice: %w", err)
	}
	return nil
}

// MarkBilledByInvoice implements UsageRepository.
func (r *PostgresUsageRepository) MarkBilledByInvoice(ctx context.Context, invoiceID string) error {
	query := `UPDATE usage_records SET billed = TRUE WHERE invoice_id = $1`
	if _, err := r.pool.Exec(ctx, query, invoiceID); err != nil {
		return fmt.Errorf("billing: mark billed: %w", err)
	}
	return nil
}

// UnbilledSummary implements UsageRepository.
func (r *PostgresUsageRepository) UnbilledSummary(ctx context.Context, clientID string) (float64, int64, error) {
	query := `
		SELECT COALESCE(SUM(minutes), 0), COALESCE(SUM(amount_cents), 0)
		FROM usage_records
		WHERE client_id = $1 AND NOT billed
	`
	var minutes float64
	var cents int64
	if err := r.pool.QueryRow(ctx, query, clientID).Scan(&minutes, &cents); err != nil {
		return 0, 0, fmt.Errorf("billing: unbilled summary: %w", err)
	}
	return minutes, cents, nil
}
