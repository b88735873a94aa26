package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/showrate/platform/pkg/logging"
)

var stripeTracer = otel.Tracer("showrate.internal.billing.stripe")

// StripeInvoicer implements PaymentProvider against the Stripe invoicing API:
// create an invoice, attach one line item, finalize it so Stripe charges the
// customer's default payment method.
type StripeInvoicer struct {
	secretKey  string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewStripeInvoicer creates a Stripe-backed invoicer.
func NewStripeInvoicer(secretKey string, timeout time.Duration, logger *logging.Logger) *StripeInvoicer {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StripeInvoicer{
		secretKey:  secretKey,
		baseURL:    "https://api.stripe.com",
		apiVersion: "2024-12-18.acacia",
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (s *StripeInvoicer) WithBaseURL(baseURL string) *StripeInvoicer {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// CreateAndFinalizeInvoice implements PaymentProvider.
func (s *StripeInvoicer) CreateAndFinalizeInvoice(ctx context.Context, customerRef string, amountCents int64, description string) (*InvoiceRef, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_and_finalize_invoice")
	defer span.End()
	span.SetAttributes(
		attribute.String("showrate.customer_ref", customerRef),
		attribute.Int64("showrate.amount_cents", amountCents),
	)

	if customerRef == "" {
		return nil, fmt.Errorf("billing: stripe customer ref required")
	}

	// Create the draft invoice.
	form := url.Values{}
	form.Set("customer", customerRef)
	form.Set("auto_advance", "true")
	form.Set("collection_method", "charge_automatically")
	form.Set("description", description)

	var created stripeInvoice
	if err := s.post(ctx, "/v1/invoices", form, &created); err != nil {
		return nil, err
	}

	// Attach the line item.
	item := url.Values{}
	item.Set("customer", customerRef)
	item.Set("invoice", created.ID)
	item.Set("amount", fmt.Sprintf("%d", amountCents))
	item.Set("currency", "usd")
	item.Set("description", description)

	if err := s.post(ctx, "/v1/invoiceitems", item, &struct{}{}); err != nil {
		return nil, err
	}

	// Finalize so Stripe opens and charges it.
	var finalized stripeInvoice
	if err := s.post(ctx, "/v1/invoices/"+created.ID+"/finalize", url.Values{}, &finalized); err != nil {
		return nil, err
	}

	status := InvoiceOpen
	if finalized.Status != "" {
		status = InvoiceStatus(finalized.Status)
	}

	s.logger.Info("stripe invoice finalized",
		"invoice_id", finalized.ID, "customer", customerRef, "amount_cents", amountCents)

	return &InvoiceRef{
		ID:               finalized.ID,
		HostedInvoiceURL: finalized.HostedInvoiceURL,
		Status:           status,
	}, nil
}

func (s *StripeInvoicer) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("billing: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Stripe-Version", s.apiVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("billing: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("billing: stripe api status %d on %s: %s", resp.StatusCode, path, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("billing: stripe decode: %w", err)
	}
	return nil
}

// stripeInvoice is the subset of Stripe's invoice object we need.
type stripeInvoice struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	HostedInvoiceURL string `json:"hosted_invoice_url"`
}
