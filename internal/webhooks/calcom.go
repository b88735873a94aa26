package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/showrate/platform/internal/appointments"
	"github.com/showrate/platform/internal/leads"
	"github.com/showrate/platform/internal/observability/metrics"
	"github.com/showrate/platform/internal/webhookevents"
	"github.com/showrate/platform/pkg/logging"
)

// calcomEvent is the envelope Cal.com posts for booking lifecycle events.
type calcomEvent struct {
	TriggerEvent string           `json:"triggerEvent"`
	UID          string           `json:"uid"`
	StartTime    time.Time        `json:"startTime"`
	EndTime      time.Time        `json:"endTime"`
	Attendees    []calcomAttendee `json:"attendees"`
}

type calcomAttendee struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

// ReminderDispatcher hooks booking changes into the reminder pipeline.
// Implementations swallow their own failures.
type ReminderDispatcher interface {
	ScheduleReminders(ctx context.Context, appt *appointments.Appointment)
	CancelReminders(ctx context.Context, appointmentID string)
}

// CalComHandler processes scheduling provider webhooks: BOOKING_CREATED,
// BOOKING_RESCHEDULED and BOOKING_CANCELLED.
type CalComHandler struct {
	secret     string
	events     webhookevents.Store
	leads      leads.Repository
	appts      appointments.Repository
	dispatcher ReminderDispatcher
	metrics    *metrics.WebhookMetrics
	logger     *logging.Logger
}

// NewCalComHandler creates the Cal.com webhook handler.
func NewCalComHandler(
	secret string,
	events webhookevents.Store,
	leadRepo leads.Repository,
	apptRepo appointments.Repository,
	dispatcher ReminderDispatcher,
	m *metrics.WebhookMetrics,
	logger *logging.Logger,
) *CalComHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CalComHandler{
		secret:     secret,
		events:     events,
		leads:      leadRepo,
		appts:      apptRepo,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
	}
}

// Handle processes one Cal.com delivery.
func (h *CalComHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if !verifyHexHMAC(h.secret, body, r.Header.Get("X-Cal-Signature-256")) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var evt calcomEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		h.logger.Error("calcom webhook decode failed", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	eventID, err := h.events.Append(r.Context(), SourceCalCom, evt.TriggerEvent, body)
	if err != nil {
		h.logger.Error("calcom webhook log append failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	procErr := h.dispatch(r.Context(), &evt)
	h.metrics.ObserveLatency(SourceCalCom, time.Since(start).Seconds())

	if procErr == nil {
		h.metrics.ObserveInbound(SourceCalCom, evt.TriggerEvent, "processed")
		_ = h.events.MarkProcessed(r.Context(), eventID)
		ack(w)
		return
	}

	h.metrics.ObserveInbound(SourceCalCom, evt.TriggerEvent, "failed")
	_ = h.events.MarkFailed(r.Context(), eventID, procErr)
	if permanent(procErr) {
		h.logger.Error("calcom booking dropped",
			"error", procErr, "trigger_event", evt.TriggerEvent, "booking_uid", evt.UID)
		ack(w)
		return
	}
	h.logger.Error("calcom webhook processing failed",
		"error", procErr, "trigger_event", evt.TriggerEvent, "booking_uid", evt.UID)
	http.Error(w, "webhook processing failed", http.StatusInternalServerError)
}

func (h *CalComHandler) dispatch(ctx context.Context, evt *calcomEvent) error {
	switch evt.TriggerEvent {
	case "BOOKING_CREATED":
		return h.handleBookingCreated(ctx, evt)
	case "BOOKING_RESCHEDULED":
		return h.handleBookingRescheduled(ctx, evt)
	case "BOOKING_CANCELLED":
		return h.handleBookingCancelled(ctx, evt)
	default:
		h.logger.Info("unhandled calcom event", "trigger_event", evt.TriggerEvent)
		return nil
	}
}

// handleBookingCreated resolves the attendee to a lead (phone first, email
// fallback) and opens the appointment. A booking we cannot tie to exactly one
// lead is an orphan: recorded as a failure and never guessed at.
func (h *CalComHandler) handleBookingCreated(ctx context.Context, evt *calcomEvent) error {
	if len(evt.Attendees) == 0 {
		h.logger.Warn("calcom booking without attendees", "booking_uid", evt.UID)
		return nil
	}
	attendee := evt.Attendees[0]

	lead, err := h.leads.ResolveByContact(ctx, leads.NormalizePhone(attendee.PhoneNumber), attendee.Email)
	if err != nil {
		return err
	}

	appt, err := h.appts.Create(ctx, &appointments.Appointment{
		ClientID:        lead.ClientID,
		LeadID:          lead.ID,
		CampaignID:      lead.CampaignID,
		BookingUID:      evt.UID,
		ScheduledAt:     evt.StartTime,
		DurationMinutes: bookingDurationMinutes(evt),
	})
	if err != nil {
		return err
	}

	if err := h.leads.LinkAppointment(ctx, lead.ID, appt.ID); err != nil {
		return err
	}

	if h.dispatcher != nil {
		h.dispatcher.ScheduleReminders(ctx, appt)
	}
	h.logger.Info("appointment booked",
		"booking_uid", evt.UID, "lead_id", lead.ID, "scheduled_at", evt.StartTime)
	return nil
}

// handleBookingRescheduled moves the appointment, resets the reminder flags
// and replaces the reminder schedule.
func (h *CalComHandler) handleBookingRescheduled(ctx context.Context, evt *calcomEvent) error {
	appt, err := h.appts.Reschedule(ctx, evt.UID, appointments.RescheduleParams{
		ScheduledAt:     evt.StartTime,
		DurationMinutes: bookingDurationMinutes(evt),
	})
	if err != nil {
		if errors.Is(err, appointments.ErrAppointmentNotFound) {
			h.logger.Warn("calcom reschedule for unknown booking", "booking_uid", evt.UID)
			return nil
		}
		return err
	}

	if h.dispatcher != nil {
		h.dispatcher.ScheduleReminders(ctx, appt)
	}
	return nil
}

// handleBookingCancelled terminally cancels the booking and re-opens the lead
// as a callback so the campaign can work it again.
func (h *CalComHandler) handleBookingCancelled(ctx context.Context, evt *calcomEvent) error {
	appt, err := h.appts.Cancel(ctx, evt.UID)
	if err != nil {
		if errors.Is(err, appointments.ErrAppointmentNotFound) {
			h.logger.Warn("calcom cancel for unknown booking", "booking_uid", evt.UID)
			return nil
		}
		return err
	}

	if err := h.leads.SetStatus(ctx, appt.LeadID, leads.StatusCallback); err != nil {
		return err
	}
	if h.dispatcher != nil {
		h.dispatcher.CancelReminders(ctx, appt.ID)
	}
	return nil
}

func bookingDurationMinutes(evt *calcomEvent) int {
	if evt.EndTime.IsZero() || !evt.EndTime.After(evt.StartTime) {
		return 0
	}
	return int(math.Round(evt.EndTime.Sub(evt.StartTime).Minutes()))
}
