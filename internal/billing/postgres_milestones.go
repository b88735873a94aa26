package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const milestoneColumns = `id, client_id, milestone_number, appointments_count, amount_cents,
		status, COALESCE(stripe_invoice_id, ''), achieved_at, paid_at, created_at`

// PostgresMilestoneRepository stores milestones in the relational database.
type PostgresMilestoneRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresMilestoneRepository initializes a repo backed by pgxpool.
func NewPostgresMilestoneRepository(pool *pgxpool.Pool) *PostgresMilestoneRepository {
	if pool == nil {
		panic("billing: pgx pool required")
	}
	return &PostgresMilestoneRepository{pool: pool}
}

// CreateIfAbsent implements MilestoneRepository. The insert races through the
// unique constraint; losing the race is not an error.
func (r *PostgresMilestoneRepository) CreateIfAbsent(ctx context.Context, m *Milestone) (*Milestone, bool, error) {
	id := uuid.New()
	query := `
		INSERT INTO milestones (id, client_id, milestone_number, appointments_count, amount_cents, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		ON CONFLICT ON CONSTRAINT milestones_client_number_key DO NOTHING
	`
	ct, err := r.pool.Exec(ctx, query, id, m.ClientID, m.MilestoneNumber, m.AppointmentsCount, m.AmountCents)
	if err != nil {
		return nil, false, fmt.Errorf("billing: insert milestone: %w", err)
	}
	created := ct.RowsAffected() > 0

	out, err := r.getByClientAndNumber(ctx, m.ClientID, m.MilestoneNumber)
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// MarkInvoiced implements MilestoneRepository.
func (r *PostgresMilestoneRepository) MarkInvoiced(ctx context.Context, id, stripeInvoiceID string) error {
	query := `UPDATE milestones SET status = 'invoiced', stripe_invoice_id = $2 WHERE id = $1`
	ct, err := r.pool.Exec(ctx, query, id, stripeInvoiceID)
	if err != nil {
		return fmt.Errorf("billing: mark milestone invoiced: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrMilestoneNotFound
	}
	return nil
}

// MarkPaidByStripeInvoiceID implements MilestoneRepository. Only the milestone
// linked to that invoice transitions.
func (r *PostgresMilestoneRepository) MarkPaidByStripeInvoiceID(ctx context.Context, stripeInvoiceID string, paidAt time.Time) error {
	query := `UPDATE milestones SET status = 'paid', paid_at = $2 WHERE stripe_invoice_id = $1`
	ct, err := r.pool.Exec(ctx, query, stripeInvoiceID, paidAt)
	if err != nil {
		return fmt.Errorf("billing: mark milestone paid: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrMilestoneNotFound
	}
	return nil
}

// ListByClient implements MilestoneRepository.
func (r *PostgresMilestoneRepository) ListByClient(ctx context.Context, clientID string) ([]Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE client_id = $1 ORDER BY milestone_number`
	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("billing: list milestones: %w", err)
	}
	return collectMilestones(rows)
}

// ListPending implements MilestoneRepository. Pending milestones are achieved
// thresholds whose invoice creation failed and needs a retry.
func (r *PostgresMilestoneRepository) ListPending(ctx context.Context) ([]Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE status = 'pending' ORDER BY achieved_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("billing: list pending milestones: %w", err)
	}
	return collectMilestones(rows)
}

func (r *PostgresMilestoneRepository) getByClientAndNumber(ctx context.Context, clientID string, number int) (*Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE client_id = $1 AND milestone_number = $2`
	return scanMilestone(r.pool.QueryRow(ctx, query, clientID, number))
}

func scanMilestone(row pgx.Row) (*Milestone, error) {
	var m Milestone
	if err := row.Scan(
		&m.ID,
		&m.ClientID,
		&m.MilestoneNumber,
		&m.AppointmentsCount,
		&m.AmountCents,
		&m.Status,
		&m.StripeInvoiceID,
		&m.AchievedAt,
		&m.PaidAt,
		&m.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMilestoneNotFound
		}
		return nil, fmt.Errorf("billing: scan milestone: %w", err)
	}
	return &m, nil
}

func collectMilestones(rows pgx.Rows) ([]Milestone, error) {
	defer rows.Close()
	var out []Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: collect milestones: %w", err)
	}
	return out, nil
}
