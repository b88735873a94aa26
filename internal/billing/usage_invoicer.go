package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/showrate/platform/pkg/logging"
)

// UsageInvoicer batches a client's unbilled usage records for one billing
// period into a single provider invoice. The paid webhook later flips the
// linked records to billed.
type UsageInvoicer struct {
	clients  ClientGetter
	usage    UsageRepository
	invoices InvoiceRepository
	provider PaymentProvider
	metrics  EvaluatorMetrics
	timeout  time.Duration
	logger   *logging.Logger
}

// NewUsageInvoicer creates a usage invoicer.
func NewUsageInvoicer(
	clientRepo ClientGetter,
	usage UsageRepository,
	invoices InvoiceRepository,
	provider PaymentProvider,
	metrics EvaluatorMetrics,
	timeout time.Duration,
	logger *logging.Logger,
) *UsageInvoicer {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &UsageInvoicer{
		clients:  clientRepo,
		usage:    usage,
		invoices: invoices,
		provider: provider,
		metrics:  metrics,
		timeout:  timeout,
		logger:   logger,
	}
}

// InvoicePeriod invoices all unbilled usage for the client and period key
// (YYYY-MM). Returns ErrNothingToInvoice when the period has no unbilled
// records.
func (u *UsageInvoicer) InvoicePeriod(ctx context.Context, clientID, period string) (*Invoice, error) {
	client, err := u.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("billing: invoice period: %w", err)
	}

	records, err := u.usage.ListUnbilled(ctx, clientID, period)
	if err != nil {
		return nil, fmt.Errorf("billing: invoice period: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNothingToInvoice
	}

	var totalMinutes float64
	var totalCents int64
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		totalMinutes += rec.Minutes
		totalCents += rec.AmountCents
		ids = append(ids, rec.ID)
	}

	callCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	ref, err := u.provider.CreateAndFinalizeInvoice(callCtx, client.StripeCustomerID,
		totalCents, UsageDescription(period, totalMinutes))
	if err != nil {
		if u.metrics != nil {
			u.metrics.InvoiceFailed(string(InvoiceTypeUsage))
		}
		return nil, fmt.Errorf("billing: invoice period: %w", err)
	}

	invoice, err := u.invoices.Create(ctx, &Invoice{
		ClientID:         clientID,
		StripeInvoiceID:  ref.ID,
		Type:             InvoiceTypeUsage,
		AmountCents:      totalCents,
		Status:           ref.Status,
		BillingPeriod:    period,
		HostedInvoiceURL: ref.HostedInvoiceURL,
	})
	if err != nil {
		return nil, fmt.Errorf("billing: invoice period: %w", err)
	}

	if err := u.usage.AssignInvoice(ctx, ids, invoice.ID); err != nil {
		return nil, fmt.Errorf("billing: invoice period: %w", err)
	}

	if u.metrics != nil {
		u.metrics.InvoiceCreated(string(InvoiceTypeUsage))
	}
	u.logger.Info("usage invoice created",
		"client_id", clientID, "period", period,
		"records", len(records), "amount_cents", totalCents)

	return invoice, nil
}
