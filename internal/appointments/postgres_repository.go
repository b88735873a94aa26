package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const apptColumns = `id, client_id, lead_id, campaign_id, booking_uid, scheduled_at,
		duration_minutes, status, reschedule_count, show_verified,
		COALESCE(verified_by, ''), verified_at, COALESCE(verified_outcome, ''),
		COALESCE(notes, ''), reminder_24h_sent, reminder_2h_sent, reminder_15m_sent, created_at`

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts a scheduled appointment. A duplicate booking uid returns the
// existing row (webhooks redeliver).
func (r *PostgresRepository) Create(ctx context.Context, appt *Appointment) (*Appointment, error) {
	id := uuid.New()
	query := `
		INSERT INTO appointments (id, client_id, lead_id, campaign_id, booking_uid, scheduled_at, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled')
		ON CONFLICT (booking_uid) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, id, appt.ClientID, appt.LeadID, appt.CampaignID,
		appt.BookingUID, appt.ScheduledAt, appt.DurationMinutes); err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}
	return r.GetByBookingUID(ctx, appt.BookingUID)
}

// GetByID fetches an appointment by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE id = $1`
	return scanAppointment(r.pool.QueryRow(ctx, query, id))
}

// GetByBookingUID fetches an appointment by the scheduling provider's uid.
func (r *PostgresRepository) GetByBookingUID(ctx context.Context, bookingUID string) (*Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments WHERE booking_uid = $1`
	return scanAppointment(r.pool.QueryRow(ctx, query, bookingUID))
}

// Reschedule implements Repository.
func (r *PostgresRepository) Reschedule(ctx context.Context, bookingUID string, params RescheduleParams) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET scheduled_at = $2,
		    duration_minutes = $3,
		    status = 'rescheduled',
		    reschedule_count = reschedule_count + 1,
		    reminder_24h_sent = FALSE,
		    reminder_2h_sent = FALSE,
		    reminder_15m_sent = FALSE
		WHERE booking_uid = $1
	`
	ct, err := r.pool.Exec(ctx, query, bookingUID, params.ScheduledAt, params.DurationMinutes)
	if err != nil {
		return nil, fmt.Errorf("appointments: reschedule: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrAppointmentNotFound
	}
	return r.GetByBookingUID(ctx, bookingUID)
}

// Cancel implements Repository.
func (r *PostgresRepository) Cancel(ctx context.Context, bookingUID string) (*Appointment, error) {
	ct, err := r.pool.Exec(ctx,
		`UPDATE appointments SET status = 'cancelled' WHERE booking_uid = $1`, bookingUID)
	if err != nil {
		return nil, fmt.Errorf("appointments: cancel: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrAppointmentNotFound
	}
	return r.GetByBookingUID(ctx, bookingUID)
}

// RecordVerification implements Repository. The verified_outcome IS NULL
// predicate makes the first write win; a row that is already verified is
// never overwritten, whoever raced us there.
func (r *PostgresRepository) RecordVerification(ctx context.Context, id string, outcome VerifyOutcome, verifiedBy, notes string, at time.Time) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $2,
		    show_verified = ($2 = 'shown'),
		    verified_by = $3,
		    verified_at = $4,
		    verified_outcome = $2,
		    notes = NULLIF($5, '')
		WHERE id = $1 AND verified_outcome IS NULL
	`
	ct, err := r.pool.Exec(ctx, query, id, string(outcome), verifiedBy, at, notes)
	if err != nil {
		return nil, fmt.Errorf("appointments: record verification: %w", err)
	}
	if ct.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyVerified
	}
	return r.GetByID(ctx, id)
}

// CountVerifiedShown implements Repository.
func (r *PostgresRepository) CountVerifiedShown(ctx context.Context, clientID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM appointments WHERE client_id = $1 AND show_verified`
	if err := r.pool.QueryRow(ctx, query, clientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("appointments: count verified: %w", err)
	}
	return count, nil
}

// MarkReminderSent implements Repository.
func (r *PostgresRepository) MarkReminderSent(ctx context.Context, id, offset string) error {
	var column string
	switch offset {
	case "24h":
		column = "reminder_24h_sent"
	case "2h":
		column = "reminder_2h_sent"
	case "15m":
		column = "reminder_15m_sent"
	default:
		return fmt.Errorf("appointments: unknown reminder offset %q", offset)
	}
	query := fmt.Sprintf(`UPDATE appointments SET %s = TRUE WHERE id = $1`, column)
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("appointments: mark reminder sent: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// ListUnverified implements Repository.
func (r *PostgresRepository) ListUnverified(ctx context.Context, clientID string, before time.Time) ([]Appointment, error) {
	query := `SELECT ` + apptColumns + ` FROM appointments
		WHERE client_id = $1
		  AND scheduled_at < $2
		  AND verified_outcome IS NULL
		  AND status NOT IN ('cancelled')
		ORDER BY scheduled_at`
	rows, err := r.pool.Query(ctx, query, clientID, before)
	if err != nil {
		return nil, fmt.Errorf("appointments: list unverified: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list unverified: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(
		&a.ID,
		&a.ClientID,
		&a.LeadID,
		&a.CampaignID,
		&a.BookingUID,
		&a.ScheduledAt,
		&a.DurationMinutes,
		&a.Status,
		&a.RescheduleCount,
		&a.ShowVerified,
		&a.VerifiedBy,
		&a.VerifiedAt,
		&a.VerifiedOutcome,
		&a.Notes,
		&a.Reminder24hSent,
		&a.Reminder2hSent,
		&a.Reminder15mSent,
		&a.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: scan: %w", err)
	}
	return &a, nil
}
