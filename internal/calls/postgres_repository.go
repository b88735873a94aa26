package calls

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const callColumns = `id, client_id, lead_id, campaign_id, provider_call_id, status,
		COALESCE(duration_seconds, 0), COALESCE(transcript, ''), COALESCE(summary, ''),
		COALESCE(outcome, ''), COALESCE(recording_url, ''), started_at, ended_at, created_at`

// PostgresRepository stores call logs in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("calls: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts a started call. A duplicate provider call id returns the
// existing row untouched (webhooks redeliver).
func (r *PostgresRepository) Create(ctx context.Context, call *Call) (*Call, bool, error) {
	id := uuid.New()
	startedAt := call.StartedAt
	if startedAt == nil {
		now := time.Now().UTC()
		startedAt = &now
	}
	query := `
		INSERT INTO call_logs (id, client_id, lead_id, campaign_id, provider_call_id, status, started_at)
		VALUES ($1, $2, $3, $4, $5, 'started', $6)
		ON CONFLICT (provider_call_id) DO NOTHING
	`
	ct, err := r.pool.Exec(ctx, query, id, call.ClientID, call.LeadID, call.CampaignID, call.ProviderCallID, startedAt)
	if err != nil {
		return nil, false, fmt.Errorf("calls: insert failed: %w", err)
	}
	stored, err := r.GetByProviderCallID(ctx, call.ProviderCallID)
	if err != nil {
		return nil, false, err
	}
	return stored, ct.RowsAffected() > 0, nil
}

// GetByProviderCallID fetches a call by the external id.
func (r *PostgresRepository) GetByProviderCallID(ctx context.Context, providerCallID string) (*Call, error) {
	query := `SELECT ` + callColumns + ` FROM call_logs WHERE provider_call_id = $1`
	return scanCall(r.pool.QueryRow(ctx, query, providerCallID))
}

// Complete implements Repository. Only a started call transitions; redelivery
// of call_ended for a completed call returns the stored row.
func (r *PostgresRepository) Complete(ctx context.Context, providerCallID string, params CompleteParams) (*Call, error) {
	query := `
		UPDATE call_logs
		SET status = 'completed',
		    duration_seconds = $2,
		    transcript = NULLIF($3, ''),
		    recording_url = NULLIF($4, ''),
		    ended_at = $5
		WHERE provider_call_id = $1 AND status = 'started'
	`
	if _, err := r.pool.Exec(ctx, query, providerCallID,
		params.DurationSeconds, params.Transcript, params.RecordingURL, params.EndedAt); err != nil {
		return nil, fmt.Errorf("calls: complete: %w", err)
	}
	return r.GetByProviderCallID(ctx, providerCallID)
}

// Annotate implements Repository.
func (r *PostgresRepository) Annotate(ctx context.Context, providerCallID, outcome, summary string) (*Call, error) {
	query := `
		UPDATE call_logs
		SET outcome = NULLIF($2, ''), summary = NULLIF($3, '')
		WHERE provider_call_id = $1
	`
	ct, err := r.pool.Exec(ctx, query, providerCallID, outcome, summary)
	if err != nil {
		return nil, fmt.Errorf("calls: annotate: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrCallNotFound
	}
	return r.GetByProviderCallID(ctx, providerCallID)
}

func scanCall(row pgx.Row) (*Call, error) {
	var c Call
	if err := row.Scan(
		&c.ID,
		&c.ClientID,
		&c.LeadID,
		&c.CampaignID,
		&c.ProviderCallID,
		&c.Status,
		&c.DurationSeconds,
		&c.Transcript,
		&c.Summary,
		&c.Outcome,
		&c.RecordingURL,
		&c.StartedAt,
		&c.EndedAt,
		&c.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCallNotFound
		}
		return nil, fmt.Errorf("calls: scan: %w", err)
	}
	return &c, nil
}
