package webhookevents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists the webhook delivery log.
type PostgresStore struct {
	pool querier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("webhookevents: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithQuerier(q querier) *PostgresStore {
	if q == nil {
		panic("webhookevents: querier required")
	}
	return &PostgresStore{pool: q}
}

// Append implements Store.
func (s *PostgresStore) Append(ctx context.Context, source, eventType string, payload json.RawMessage) (string, error) {
	id := uuid.New()
	query := `INSERT INTO webhook_events (id, source, event_type, payload) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, id, source, eventType, payload); err != nil {
		return "", fmt.Errorf("webhookevents: append: %w", err)
	}
	return id.String(), nil
}

// MarkProcessed implements Store.
func (s *PostgresStore) MarkProcessed(ctx context.Context, id string) error {
	query := `UPDATE webhook_events SET processed = TRUE, processed_at = $2 WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("webhookevents: mark processed: %w", err)
	}
	return nil
}

// MarkFailed implements Store. The row stays unprocessed so reconciliation
// queries over processed = FALSE still surface it.
func (s *PostgresStore) MarkFailed(ctx context.Context, id string, handlerErr error) error {
	query := `UPDATE webhook_events SET error = $2 WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query, id, handlerErr.Error()); err != nil {
		return fmt.Errorf("webhookevents: mark failed: %w", err)
	}
	return nil
}

// ListRecent implements Store.
func (s *PostgresStore) ListRecent(ctx context.Context, source string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, source, event_type, payload, processed, processed_at, COALESCE(error, ''), created_at
		FROM webhook_events
		WHERE source = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, source, limit)
	if err != nil {
		return nil, fmt.Errorf("webhookevents: list recent: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Source, &e.EventType, &e.Payload,
			&e.Processed, &e.ProcessedAt, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("webhookevents: scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("webhookevents: list recent: %w", err)
	}
	return out, nil
}
