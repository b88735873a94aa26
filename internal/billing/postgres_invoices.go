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

const invoiceColumns = `id, client_id, stripe_invoice_id, invoice_type, amount_cents, status,
		COALESCE(billing_period, ''), COALESCE(hosted_invoice_url, ''), paid_at, created_at`

// PostgresInvoiceRepository stores invoices in the relational database.
type PostgresInvoiceRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresInvoiceRepository initializes a repo backed by pgxpool.
func NewPostgresInvoiceRepository(pool *pgxpool.Pool) *PostgresInvoiceRepository {
	if pool == nil {
		panic("billing: pgx pool required")
	}
	return &PostgresInvoiceRepository{pool: pool}
}

// Create implements InvoiceRepository.
func (r *PostgresInvoiceRepository) Create(ctx context.Context, inv *Invoice) (*Invoice, error) {
	id := uuid.New()
	status := inv.Status
	if status == "" {
		status = InvoiceOpen
	}
	query := `
		INSERT INTO invoices (id, client_id, stripe_invoice_id, invoice_type, amount_cents, status, billing_period, hosted_invoice_url)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query, id, inv.ClientID, inv.StripeInvoiceID, inv.Type,
		inv.AmountCents, status, inv.BillingPeriod, inv.HostedInvoiceURL).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("billing: insert invoice: %w", err)
	}

	created := *inv
	created.ID = id.String()
	created.Status = status
	created.CreatedAt = createdAt
	return &created, nil
}

// GetByStripeInvoiceID implements InvoiceRepository.
func (r *PostgresInvoiceRepository) GetByStripeInvoiceID(ctx context.Context, stripeInvoiceID string) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE stripe_invoice_id = $1`
	var inv Invoice
	if err := r.pool.QueryRow(ctx, query, stripeInvoiceID).Scan(
		&inv.ID,
		&inv.ClientID,
		&inv.StripeInvoiceID,
		&inv.Type,
		&inv.AmountCents,
		&inv.Status,
		&inv.BillingPeriod,
		&inv.HostedInvoiceURL,
		&inv.PaidAt,
		&inv.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("billing: select invoice: %w", err)
	}
	return &inv, nil
}

// MarkPaid implements InvoiceRepository.
func (r *PostgresInvoiceRepository) MarkPaid(ctx context.Context, stripeInvoiceID string, paidAt time.Time) error {
	query := `UPDATE invoices SET status = 'paid', paid_at = $2 WHERE stripe_invoice_id = $1`
	ct, err := r.pool.Exec(ctx, query, stripeInvoiceID, paidAt)
	if err != nil {
		return fmt.Errorf("billing: mark invoice paid: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// MarkFailed implements InvoiceRepository.
func (r *PostgresInvoiceRepository) MarkFailed(ctx context.Context, stripeInvoiceID string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE invoices SET status = 'failed' WHERE stripe_invoice_id = $1`, stripeInvoiceID)
	if err != nil {
		return fmt.Errorf("billing: mark invoice failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}
