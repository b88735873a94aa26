package billing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/showrate/platform/pkg/logging"
)

// Handler serves the billing dashboard endpoints.
type Handler struct {
	usage      UsageRepository
	milestones MilestoneRepository
	invoicer   *UsageInvoicer
	logger     *logging.Logger
}

// NewHandler creates a new billing handler. The invoicer may be nil, which
// disables the invoice-usage endpoint.
func NewHandler(usage UsageRepository, milestones MilestoneRepository, invoicer *UsageInvoicer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{usage: usage, milestones: milestones, invoicer: invoicer, logger: logger}
}

// SummaryResponse is the body for GET /api/billing/summary.
type SummaryResponse struct {
	ClientID            string      `json:"client_id"`
	UnbilledMinutes     float64     `json:"unbilled_minutes"`
	UnbilledAmountCents int64       `json:"unbilled_amount_cents"`
	Milestones          []Milestone `json:"milestones"`
}

// Summary handles GET /api/billing/summary?client_id=...
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		http.Error(w, "missing client_id", http.StatusBadRequest)
		return
	}

	minutes, amountCents, err := h.usage.UnbilledSummary(r.Context(), clientID)
	if err != nil {
		h.logger.Error("unbilled summary failed", "error", err, "client_id", clientID)
		http.Error(w, "failed to load billing summary", http.StatusInternalServerError)
		return
	}

	milestones, err := h.milestones.ListByClient(r.Context(), clientID)
	if err != nil {
		h.logger.Error("milestone list failed", "error", err, "client_id", clientID)
		http.Error(w, "failed to load billing summary", http.StatusInternalServerError)
		return
	}
	if milestones == nil {
		milestones = []Milestone{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SummaryResponse{
		ClientID:            clientID,
		UnbilledMinutes:     minutes,
		UnbilledAmountCents: amountCents,
		Milestones:          milestones,
	})
}

// InvoiceUsageRequest is the body for POST /api/billing/invoice-usage.
type InvoiceUsageRequest struct {
	ClientID string `json:"client_id"`
	Period   string `json:"period"`
}

// InvoiceUsage batches a client's unbilled usage for one period into a single
// provider invoice.
func (h *Handler) InvoiceUsage(w http.ResponseWriter, r *http.Request) {
	if h.invoicer == nil {
		http.Error(w, "usage invoicing not configured", http.StatusServiceUnavailable)
		return
	}

	var req InvoiceUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClientID == "" || req.Period == "" {
		http.Error(w, "client_id and period are required", http.StatusBadRequest)
		return
	}

	invoice, err := h.invoicer.InvoicePeriod(r.Context(), req.ClientID, req.Period)
	if err != nil {
		if errors.Is(err, ErrNothingToInvoice) {
			http.Error(w, "no unbilled usage for period", http.StatusConflict)
			return
		}
		h.logger.Error("usage invoicing failed",
			"error", err, "client_id", req.ClientID, "period", req.Period)
		http.Error(w, "failed to invoice usage", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(invoice)
}
