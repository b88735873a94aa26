package billing

import (
	"context"
	"time"
)

// MilestoneRepository stores milestone rows. Creation goes through
// CreateIfAbsent so the (client_id, milestone_number) unique constraint is the
// only dedup path.
type MilestoneRepository interface {
	// CreateIfAbsent inserts the milestone unless one already exists for the
	// (client, number) pair. Returns created=false when another caller won.
	CreateIfAbsent(ctx context.Context, m *Milestone) (out *Milestone, created bool, err error)

	MarkInvoiced(ctx context.Context, id, stripeInvoiceID string) error
	MarkPaidByStripeInvoiceID(ctx context.Context, stripeInvoiceID string, paidAt time.Time) error
	ListByClient(ctx context.Context, clientID string) ([]Milestone, error)
	ListPending(ctx context.Context) ([]Milestone, error)
}

// InvoiceRepository stores our mirror of payment-provider invoices.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) (*Invoice, error)
	GetByStripeInvoiceID(ctx context.Context, stripeInvoiceID string) (*Invoice, error)
	MarkPaid(ctx context.Context, stripeInvoiceID string, paidAt time.Time) error
	MarkFailed(ctx context.Context, stripeInvoiceID string) error
}

// UsageRepository stores per-call usage records.
type UsageRepository interface {
	// Create inserts the record unless the call already has one (call_ended
	// webhooks redeliver). Returns created=false on redelivery.
	Create(ctx context.Context, u *UsageRecord) (out *UsageRecord, created bool, err error)

	ListUnbilled(ctx context.Context, clientID, period string) ([]UsageRecord, error)
	AssignInvoice(ctx context.Context, recordIDs []string, invoiceID string) error
	MarkBilledByInvoice(ctx context.Context, invoiceID string) error
	UnbilledSummary(ctx context.Context, clientID string) (minutes float64, amountCents int64, err error)
}
