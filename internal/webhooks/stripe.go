package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/showrate/platform/internal/billing"
	"github.com/showrate/platform/internal/campaigns"
	"github.com/showrate/platform/internal/clients"
	"github.com/showrate/platform/internal/observability/metrics"
	"github.com/showrate/platform/internal/webhookevents"
	"github.com/showrate/platform/pkg/logging"
)

// stripeEvent is the envelope Stripe posts for every event.
type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object stripeObject `json:"object"`
	} `json:"data"`
}

// stripeObject is the subset of invoice/subscription fields we consume.
type stripeObject struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	HostedInvoiceURL  string `json:"hosted_invoice_url"`
	StatusTransitions struct {
		PaidAt int64 `json:"paid_at"`
	} `json:"status_transitions"`
}

// StripeHandler processes payment provider webhooks: invoice.paid,
// invoice.payment_failed and customer.subscription.deleted.
type StripeHandler struct {
	secret     string
	events     webhookevents.Store
	invoices   billing.InvoiceRepository
	milestones billing.MilestoneRepository
	usage      billing.UsageRepository
	clients    clients.Repository
	campaigns  campaigns.Repository
	metrics    *metrics.WebhookMetrics
	logger     *logging.Logger
}

// NewStripeHandler creates the Stripe webhook handler.
func NewStripeHandler(
	secret string,
	events webhookevents.Store,
	invoices billing.InvoiceRepository,
	milestones billing.MilestoneRepository,
	usage billing.UsageRepository,
	clientRepo clients.Repository,
	campaignRepo campaigns.Repository,
	m *metrics.WebhookMetrics,
	logger *logging.Logger,
) *StripeHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeHandler{
		secret:     secret,
		events:     events,
		invoices:   invoices,
		milestones: milestones,
		usage:      usage,
		clients:    clientRepo,
		campaigns:  campaignRepo,
		metrics:    m,
		logger:     logger,
	}
}

// Handle processes one Stripe delivery. The signature is verified against the
// raw body before anything is parsed.
func (h *StripeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if !verifyStripeSignature(h.secret, body, r.Header.Get("Stripe-Signature")) {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var evt stripeEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		h.logger.Error("stripe webhook decode failed", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	eventID, err := h.events.Append(r.Context(), SourceStripe, evt.Type, body)
	if err != nil {
		h.logger.Error("stripe webhook log append failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	procErr := h.dispatch(r.Context(), &evt)
	h.metrics.ObserveLatency(SourceStripe, time.Since(start).Seconds())

	if procErr == nil {
		h.metrics.ObserveInbound(SourceStripe, evt.Type, "processed")
		_ = h.events.MarkProcessed(r.Context(), eventID)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	h.metrics.ObserveInbound(SourceStripe, evt.Type, "failed")
	_ = h.events.MarkFailed(r.Context(), eventID, procErr)
	if permanent(procErr) {
		h.logger.Error("stripe webhook dropped",
			"error", procErr, "type", evt.Type, "object_id", evt.Data.Object.ID)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	h.logger.Error("stripe webhook processing failed",
		"error", procErr, "type", evt.Type, "object_id", evt.Data.Object.ID)
	http.Error(w, "webhook processing failed", http.StatusInternalServerError)
}

func (h *StripeHandler) dispatch(ctx context.Context, evt *stripeEvent) error {
	switch evt.Type {
	case "invoice.paid":
		return h.handleInvoicePaid(ctx, &evt.Data.Object)
	case "invoice.payment_failed":
		return h.handleInvoicePaymentFailed(ctx, &evt.Data.Object)
	case "customer.subscription.deleted":
		return h.handleSubscriptionDeleted(ctx, &evt.Data.Object)
	default:
		h.logger.Info("unhandled stripe event", "type", evt.Type)
		return nil
	}
}

// handleInvoicePaid settles our invoice mirror and then the rows behind it: a
// milestone invoice marks the milestone paid, a usage invoice flips its
// linked usage records to billed.
func (h *StripeHandler) handleInvoicePaid(ctx context.Context, obj *stripeObject) error {
	invoice, err := h.invoices.GetByStripeInvoiceID(ctx, obj.ID)
	if err != nil {
		return err
	}

	paidAt := time.Now().UTC()
	if obj.StatusTransitions.PaidAt > 0 {
		paidAt = time.Unix(obj.StatusTransitions.PaidAt, 0).UTC()
	}
	if err := h.invoices.MarkPaid(ctx, obj.ID, paidAt); err != nil {
		return err
	}

	switch invoice.Type {
	case billing.InvoiceTypeMilestone:
		if err := h.milestones.MarkPaidByStripeInvoiceID(ctx, obj.ID, paidAt); err != nil {
			if errors.Is(err, billing.ErrMilestoneNotFound) {
				h.logger.Warn("paid milestone invoice has no milestone", "stripe_invoice_id", obj.ID)
				return nil
			}
			return err
		}
	case billing.InvoiceTypeUsage:
		if err := h.usage.MarkBilledByInvoice(ctx, invoice.ID); err != nil {
			return err
		}
	}

	h.logger.Info("invoice paid",
		"stripe_invoice_id", obj.ID, "invoice_type", invoice.Type, "client_id", invoice.ClientID)
	return nil
}

func (h *StripeHandler) handleInvoicePaymentFailed(ctx context.Context, obj *stripeObject) error {
	if err := h.invoices.MarkFailed(ctx, obj.ID); err != nil {
		return err
	}
	h.logger.Warn("invoice payment failed", "stripe_invoice_id", obj.ID)
	return nil
}

// handleSubscriptionDeleted suspends the client and pauses every active
// campaign so no further calls go out for an unpaid account.
func (h *StripeHandler) handleSubscriptionDeleted(ctx context.Context, obj *stripeObject) error {
	client, err := h.clients.GetByStripeCustomerID(ctx, obj.Customer)
	if err != nil {
		if errors.Is(err, clients.ErrClientNotFound) {
			h.logger.Warn("subscription deleted for unknown customer", "customer", obj.Customer)
			return nil
		}
		return err
	}

	if err := h.clients.Suspend(ctx, client.ID); err != nil {
		return err
	}
	paused, err := h.campaigns.PauseActiveForClient(ctx, client.ID)
	if err != nil {
		return err
	}

	h.logger.Info("client suspended after subscription deletion",
		"client_id", client.ID, "campaigns_paused", paused)
	return nil
}
