package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/showrate/platform/internal/clients"
	"github.com/showrate/platform/pkg/logging"
)

// ShownCounter counts verified-shown appointments for a client. Satisfied by
// the appointments repository.
type ShownCounter interface {
	CountVerifiedShown(ctx context.Context, clientID string) (int, error)
}

// ClientGetter loads the billing configuration for a client.
type ClientGetter interface {
	GetByID(ctx context.Context, id string) (*clients.Client, error)
}

// EvaluatorMetrics records milestone and invoicing outcomes.
type EvaluatorMetrics interface {
	MilestoneCreated()
	InvoiceCreated(invoiceType string)
	InvoiceFailed(invoiceType string)
}

// Evaluator detects milestone threshold crossings after shown verifications.
//
// The count is recomputed from the appointment table on every call; dedup
// relies entirely on the (client_id, milestone_number) unique constraint, so
// concurrent evaluations for the same client are safe without any in-process
// coordination.
type Evaluator struct {
	clients    ClientGetter
	shown      ShownCounter
	milestones MilestoneRepository
	invoices   InvoiceRepository
	provider   PaymentProvider
	metrics    EvaluatorMetrics
	timeout    time.Duration
	logger     *logging.Logger
}

// NewEvaluator creates a milestone evaluator. The timeout bounds the provider
// call; pass zero for the default.
func NewEvaluator(
	clientRepo ClientGetter,
	shown ShownCounter,
	milestones MilestoneRepository,
	invoices InvoiceRepository,
	provider PaymentProvider,
	metrics EvaluatorMetrics,
	timeout time.Duration,
	logger *logging.Logger,
) *Evaluator {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Evaluator{
		clients:    clientRepo,
		shown:      shown,
		milestones: milestones,
		invoices:   invoices,
		provider:   provider,
		metrics:    metrics,
		timeout:    timeout,
		logger:     logger,
	}
}

// Evaluate recomputes the shown count for the client and, when it sits exactly
// on a multiple of the milestone interval, records the milestone and invoices
// it. It reports whether this call newly achieved a milestone.
//
// Invoice failure is deliberately non-fatal: the milestone stays pending for a
// later re-invoice and the caller's verification still succeeds.
func (e *Evaluator) Evaluate(ctx context.Context, clientID string) (bool, int, error) {
	client, err := e.clients.GetByID(ctx, clientID)
	if err != nil {
		return false, 0, fmt.Errorf("billing: evaluate: %w", err)
	}

	interval := client.MilestoneInterval
	if interval <= 0 {
		return false, 0, nil
	}

	shownCount, err := e.shown.CountVerifiedShown(ctx, clientID)
	if err != nil {
		return false, 0, fmt.Errorf("billing: evaluate: %w", err)
	}

	// A milestone is crossed exactly when the count lands on a positive
	// multiple of the interval.
	if shownCount == 0 || shownCount%interval != 0 {
		return false, 0, nil
	}
	number := shownCount / interval

	milestone, created, err := e.milestones.CreateIfAbsent(ctx, &Milestone{
		ClientID:          clientID,
		MilestoneNumber:   number,
		AppointmentsCount: shownCount,
		AmountCents:       client.MilestoneAmountCents,
	})
	if err != nil {
		return false, 0, fmt.Errorf("billing: evaluate: %w", err)
	}
	if !created {
		// Another verification already claimed this threshold.
		return false, number, nil
	}

	if e.metrics != nil {
		e.metrics.MilestoneCreated()
	}
	e.logger.Info("milestone achieved",
		"client_id", clientID,
		"milestone_number", number,
		"appointments_count", shownCount,
	)

	e.invoiceMilestone(ctx, client, milestone)
	return true, number, nil
}

// invoiceMilestone creates and finalizes the provider invoice for a freshly
// created milestone. Errors leave the milestone pending.
func (e *Evaluator) invoiceMilestone(ctx context.Context, client *clients.Client, milestone *Milestone) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	description := fmt.Sprintf("Milestone %d - %d appointments shown",
		milestone.MilestoneNumber, milestone.AppointmentsCount)

	ref, err := e.provider.CreateAndFinalizeInvoice(ctx, client.StripeCustomerID, milestone.AmountCents, description)
	if err != nil {
		if e.metrics != nil {
			e.metrics.InvoiceFailed(string(InvoiceTypeMilestone))
		}
		e.logger.Error("milestone invoice creation failed",
			"error", err, "client_id", client.ID, "milestone_number", milestone.MilestoneNumber)
		return
	}

	if _, err := e.invoices.Create(ctx, &Invoice{
		ClientID:         client.ID,
		StripeInvoiceID:  ref.ID,
		Type:             InvoiceTypeMilestone,
		AmountCents:      milestone.AmountCents,
		Status:           ref.Status,
		HostedInvoiceURL: ref.HostedInvoiceURL,
	}); err != nil {
		e.logger.Error("milestone invoice persist failed",
			"error", err, "stripe_invoice_id", ref.ID)
		return
	}

	if err := e.milestones.MarkInvoiced(ctx, milestone.ID, ref.ID); err != nil {
		e.logger.Error("milestone status update failed",
			"error", err, "milestone_id", milestone.ID)
		return
	}

	if e.metrics != nil {
		e.metrics.InvoiceCreated(string(InvoiceTypeMilestone))
	}
}
