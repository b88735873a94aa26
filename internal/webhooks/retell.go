package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/showrate/platform/internal/billing"
	"github.com/showrate/platform/internal/calls"
	"github.com/showrate/platform/internal/clients"
	"github.com/showrate/platform/internal/leads"
	"github.com/showrate/platform/internal/observability/metrics"
	"github.com/showrate/platform/internal/webhookevents"
	"github.com/showrate/platform/pkg/logging"
)

// retellEvent is the flat envelope Retell posts for every call lifecycle
// event. Fields are populated per event type.
type retellEvent struct {
	EventType        string              `json:"event_type"`
	CallID           string              `json:"call_id"`
	AgentID          string              `json:"agent_id"`
	FromNumber       string              `json:"from_number"`
	ToNumber         string              `json:"to_number"`
	CallDuration     int                 `json:"call_duration"`
	Transcript       string              `json:"transcript"`
	RecordingURL     string              `json:"recording_url"`
	DisconnectReason string              `json:"disconnect_reason"`
	EndTimestamp     int64               `json:"end_timestamp"`
	CallAnalysis     *retellCallAnalysis `json:"call_analysis"`
}

type retellCallAnalysis struct {
	Outcome string `json:"outcome"`
	Summary string `json:"summary"`
}

// RetellHandler processes voice-call provider webhooks: call.started,
// call.ended and call.analyzed.
type RetellHandler struct {
	secret  string
	events  webhookevents.Store
	leads   leads.Repository
	calls   calls.Repository
	clients clients.Repository
	usage   billing.UsageRepository
	metrics *metrics.WebhookMetrics
	logger  *logging.Logger
}

// NewRetellHandler creates the Retell webhook handler.
func NewRetellHandler(
	secret string,
	events webhookevents.Store,
	leadRepo leads.Repository,
	callRepo calls.Repository,
	clientRepo clients.Repository,
	usage billing.UsageRepository,
	m *metrics.WebhookMetrics,
	logger *logging.Logger,
) *RetellHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RetellHandler{
		secret:  secret,
		events:  events,
		leads:   leadRepo,
		calls:   callRepo,
		clients: clientRepo,
		usage:   usage,
		metrics: m,
		logger:  logger,
	}
}

// Handle processes one Retell delivery.
func (h *RetellHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if !verifyHexHMAC(h.secret, body, r.Header.Get("X-Retell-Signature")) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var evt retellEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		h.logger.Error("retell webhook decode failed", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	eventID, err := h.events.Append(r.Context(), SourceRetell, evt.EventType, body)
	if err != nil {
		h.logger.Error("retell webhook log append failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	procErr := h.dispatch(r.Context(), &evt)
	h.metrics.ObserveLatency(SourceRetell, time.Since(start).Seconds())

	if procErr == nil {
		h.metrics.ObserveInbound(SourceRetell, evt.EventType, "processed")
		_ = h.events.MarkProcessed(r.Context(), eventID)
		ack(w)
		return
	}

	h.metrics.ObserveInbound(SourceRetell, evt.EventType, "failed")
	_ = h.events.MarkFailed(r.Context(), eventID, procErr)
	if permanent(procErr) {
		h.logger.Warn("retell webhook dropped",
			"error", procErr, "event_type", evt.EventType, "call_id", evt.CallID)
		ack(w)
		return
	}
	h.logger.Error("retell webhook processing failed",
		"error", procErr, "event_type", evt.EventType, "call_id", evt.CallID)
	http.Error(w, "webhook processing failed", http.StatusInternalServerError)
}

func (h *RetellHandler) dispatch(ctx context.Context, evt *retellEvent) error {
	switch evt.EventType {
	case "call.started":
		return h.handleCallStarted(ctx, evt)
	case "call.ended":
		return h.handleCallEnded(ctx, evt)
	case "call.analyzed":
		return h.handleCallAnalyzed(ctx, evt)
	default:
		h.logger.Info("unhandled retell event", "event_type", evt.EventType)
		return nil
	}
}

// handleCallStarted attributes the call to a lead by the dialed number,
// opens the call log, and counts the attempt. A number we cannot attribute
// is logged and acknowledged.
func (h *RetellHandler) handleCallStarted(ctx context.Context, evt *retellEvent) error {
	phone := leads.NormalizePhone(evt.ToNumber)
	if phone == "" {
		h.logger.Warn("retell call to undialable number", "to_number", evt.ToNumber, "call_id", evt.CallID)
		return nil
	}

	lead, err := h.leads.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, leads.ErrLeadNotFound) || errors.Is(err, leads.ErrAmbiguousMatch) {
			h.logger.Warn("retell call not attributable to a lead",
				"error", err, "phone", phone, "call_id", evt.CallID)
			return nil
		}
		return err
	}

	now := time.Now().UTC()
	_, created, err := h.calls.Create(ctx, &calls.Call{
		ClientID:       lead.ClientID,
		LeadID:         lead.ID,
		CampaignID:     lead.CampaignID,
		ProviderCallID: evt.CallID,
		Status:         calls.StatusStarted,
		StartedAt:      &now,
	})
	if err != nil {
		return err
	}
	if !created {
		// Redelivery; the attempt was already counted.
		return nil
	}

	return h.leads.RecordCallAttempt(ctx, lead.ID, now)
}

// handleCallEnded finalizes the call log and writes the usage record at the
// client's per-minute rate. The usage insert is keyed by call id, so a
// redelivered event never double-bills.
func (h *RetellHandler) handleCallEnded(ctx context.Context, evt *retellEvent) error {
	endedAt := time.Now().UTC()
	if evt.EndTimestamp > 0 {
		endedAt = time.UnixMilli(evt.EndTimestamp).UTC()
	}

	call, err := h.calls.Complete(ctx, evt.CallID, calls.CompleteParams{
		DurationSeconds: evt.CallDuration,
		Transcript:      evt.Transcript,
		RecordingURL:    evt.RecordingURL,
		EndedAt:         endedAt,
	})
	if err != nil {
		if errors.Is(err, calls.ErrCallNotFound) {
			h.logger.Warn("retell call_ended for unknown call", "call_id", evt.CallID)
			return nil
		}
		return err
	}

	client, err := h.clients.GetByID(ctx, call.ClientID)
	if err != nil {
		return err
	}

	minutes, amountCents := billing.ComputeUsage(evt.CallDuration, client.PerMinuteRateCents)
	_, created, err := h.usage.Create(ctx, &billing.UsageRecord{
		ClientID:      call.ClientID,
		CallID:        call.ID,
		Minutes:       minutes,
		AmountCents:   amountCents,
		BillingPeriod: billing.BillingPeriod(endedAt),
	})
	if err != nil {
		return err
	}
	if !created {
		h.logger.Debug("usage record already exists, redelivery ignored", "call_id", call.ID)
	}
	return nil
}

// handleCallAnalyzed attaches the analysis to the call log and maps the
// outcome onto the lead funnel. Status moves only forward.
func (h *RetellHandler) handleCallAnalyzed(ctx context.Context, evt *retellEvent) error {
	outcome := "unknown"
	summary := ""
	if evt.CallAnalysis != nil {
		if evt.CallAnalysis.Outcome != "" {
			outcome = evt.CallAnalysis.Outcome
		}
		summary = evt.CallAnalysis.Summary
	}

	call, err := h.calls.Annotate(ctx, evt.CallID, outcome, summary)
	if err != nil {
		if errors.Is(err, calls.ErrCallNotFound) {
			h.logger.Warn("retell call.analyzed for unknown call", "call_id", evt.CallID)
			return nil
		}
		return err
	}

	var status leads.Status
	switch outcome {
	case "appointment_set":
		status = leads.StatusBooked
	case "callback_requested":
		status = leads.StatusCallback
	case "not_interested", "dnc":
		status = leads.StatusDNC
	default:
		return nil
	}
	return h.leads.AdvanceStatus(ctx, call.LeadID, status)
}
