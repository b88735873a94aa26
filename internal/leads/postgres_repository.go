package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadColumns = `id, client_id, campaign_id, first_name, last_name,
		COALESCE(email, ''), phone, status, call_attempts,
		COALESCE(appointment_id::text, ''), last_contact_at, created_at`

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts a new lead row. The phone is stored normalized.
func (r *PostgresRepository) Create(ctx context.Context, lead *Lead) (*Lead, error) {
	phone := NormalizePhone(lead.Phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	id := uuid.New()
	query := `
		INSERT INTO leads (id, client_id, campaign_id, first_name, last_name, email, phone, status)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		RETURNING created_at
	`
	status := lead.Status
	if status == "" {
		status = StatusPending
	}
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		lead.ClientID,
		lead.CampaignID,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		phone,
		status,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	created := *lead
	created.ID = id.String()
	created.Phone = phone
	created.Status = status
	created.CreatedAt = createdAt
	return &created, nil
}

// GetByID fetches a lead by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return collectOne(rows)
}

// FindByPhone matches a lead by exact phone. Two rows on the same number is
// ambiguous and surfaces as an error.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE phone = $1 LIMIT 2`
	rows, err := r.pool.Query(ctx, query, phone)
	if err != nil {
		return nil, fmt.Errorf("leads: select by phone: %w", err)
	}
	return collectSingle(rows)
}

// ResolveByContact matches phone first, then email.
func (r *PostgresRepository) ResolveByContact(ctx context.Context, phone, email string) (*Lead, error) {
	if normalized := NormalizePhone(phone); normalized != "" {
		lead, err := r.FindByPhone(ctx, normalized)
		if err == nil {
			return lead, nil
		}
		if !errors.Is(err, ErrLeadNotFound) {
			return nil, err
		}
	}

	if email == "" {
		return nil, ErrLeadNotFound
	}
	query := `SELECT ` + leadColumns + ` FROM leads WHERE email = $1 LIMIT 2`
	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("leads: select by email: %w", err)
	}
	return collectSingle(rows)
}

// RecordCallAttempt implements Repository.
func (r *PostgresRepository) RecordCallAttempt(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE leads
		SET call_attempts = call_attempts + 1,
		    last_contact_at = $2,
		    status = CASE WHEN status = 'pending' THEN 'contacted' ELSE status END
		WHERE id = $1
	`
	ct, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("leads: record call attempt: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// AdvanceStatus implements Repository. The rank ladder lives in SQL so the
// check-and-set is a single statement.
func (r *PostgresRepository) AdvanceStatus(ctx context.Context, id string, status Status) error {
	query := `
		WITH ranks (status, rank) AS (
			VALUES ('pending', 0), ('contacted', 1), ('callback', 2),
			       ('booked', 3), ('shown', 4), ('no_show', 4), ('dnc', 5)
		)
		UPDATE leads
		SET status = $2
		FROM ranks cur, ranks next
		WHERE leads.id = $1
		  AND cur.status = leads.status
		  AND next.status = $2
		  AND next.rank > cur.rank
	`
	if _, err := r.pool.Exec(ctx, query, id, status); err != nil {
		return fmt.Errorf("leads: advance status: %w", err)
	}
	return nil
}

// SetStatus implements Repository.
func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status Status) error {
	ct, err := r.pool.Exec(ctx, `UPDATE leads SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("leads: set status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// LinkAppointment implements Repository.
func (r *PostgresRepository) LinkAppointment(ctx context.Context, id, appointmentID string) error {
	query := `UPDATE leads SET appointment_id = $2, status = 'booked' WHERE id = $1`
	ct, err := r.pool.Exec(ctx, query, id, appointmentID)
	if err != nil {
		return fmt.Errorf("leads: link appointment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// ListByCampaign implements Repository. An empty status lists all leads.
func (r *PostgresRepository) ListByCampaign(ctx context.Context, campaignID string, status Status) ([]Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE campaign_id = $1
		AND ($2 = '' OR status = $2) ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, campaignID, string(status))
	if err != nil {
		return nil, fmt.Errorf("leads: list by campaign: %w", err)
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list by campaign: %w", err)
	}
	return out, nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	if err := row.Scan(
		&lead.ID,
		&lead.ClientID,
		&lead.CampaignID,
		&lead.FirstName,
		&lead.LastName,
		&lead.Email,
		&lead.Phone,
		&lead.Status,
		&lead.CallAttempts,
		&lead.AppointmentID,
		&lead.LastContactAt,
		&lead.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("leads: scan: %w", err)
	}
	return &lead, nil
}

// collectOne expects exactly zero or one row.
func collectOne(rows pgx.Rows) (*Lead, error) {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("leads: select: %w", err)
		}
		return nil, ErrLeadNotFound
	}
	return scanLead(rows)
}

// collectSingle expects one row and flags a second as ambiguous.
func collectSingle(rows pgx.Rows) (*Lead, error) {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("leads: select: %w", err)
		}
		return nil, ErrLeadNotFound
	}
	lead, err := scanLead(rows)
	if err != nil {
		return nil, err
	}
	if rows.Next() {
		return nil, ErrAmbiguousMatch
	}
	return lead, nil
}
