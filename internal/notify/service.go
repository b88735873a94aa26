// Package notify sends outbound email to leads: appointment reminders ahead
// of the scheduled time and re-engagement invites after a no-show. Delivery
// failures are logged and never propagated into the flows that trigger them.
package notify

import (
	"context"
	"fmt"

	"github.com/showrate/platform/internal/appointments"
	"github.com/showrate/platform/internal/leads"
	"github.com/showrate/platform/pkg/logging"
)

// LeadGetter loads the lead a notification addresses.
type LeadGetter interface {
	GetByID(ctx context.Context, id string) (*leads.Lead, error)
}

// Service composes and sends lead-facing notifications.
type Service struct {
	email    EmailSender
	leadRepo LeadGetter
	logger   *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, leadRepo LeadGetter, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	return &Service{
		email:    email,
		leadRepo: leadRepo,
		logger:   logger,
	}
}

var reminderLeadIn = map[string]string{
	"24h": "tomorrow",
	"2h":  "in 2 hours",
	"15m": "in 15 minutes",
}

// SendReminder emails the lead an appointment reminder for the given offset
// ("24h", "2h" or "15m").
func (s *Service) SendReminder(ctx context.Context, appt *appointments.Appointment, offset string) error {
	lead, err := s.lead(ctx, appt.LeadID)
	if err != nil {
		return err
	}
	if lead.Email == "" {
		s.logger.Debug("notify: lead has no email, skipping reminder",
			"lead_id", lead.ID, "appointment_id", appt.ID)
		return nil
	}

	when := reminderLeadIn[offset]
	if when == "" {
		when = "soon"
	}
	local := appt.ScheduledAt.Format("Monday, January 2 at 3:04 PM MST")

	msg := EmailMessage{
		To:      lead.Email,
		ToName:  lead.FirstName + " " + lead.LastName,
		Subject: fmt.Sprintf("Reminder: your appointment is %s", when),
		Body: fmt.Sprintf("Hi %s,\n\nThis is a reminder that your appointment is %s, on %s.\n\nSee you there!",
			lead.FirstName, when, local),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send reminder: %w", err)
	}
	return nil
}

// TriggerRebook invites a no-show lead to pick a new time. Errors are logged
// only; the verification that triggered the rebook has already committed.
func (s *Service) TriggerRebook(ctx context.Context, appt *appointments.Appointment) {
	lead, err := s.lead(ctx, appt.LeadID)
	if err != nil {
		s.logger.Warn("notify: rebook lead lookup failed",
			"error", err, "appointment_id", appt.ID, "lead_id", appt.LeadID)
		return
	}
	if lead.Email == "" {
		s.logger.Debug("notify: lead has no email, skipping rebook invite",
			"lead_id", lead.ID, "appointment_id", appt.ID)
		return
	}

	msg := EmailMessage{
		To:      lead.Email,
		ToName:  lead.FirstName + " " + lead.LastName,
		Subject: "Sorry we missed you - want to pick a new time?",
		Body: fmt.Sprintf("Hi %s,\n\nIt looks like we missed you at your appointment. No problem - reply to this email or give us a call and we'll find a time that works better.",
			lead.FirstName),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Warn("notify: rebook invite failed",
			"error", err, "lead_id", lead.ID, "appointment_id", appt.ID)
		return
	}
	s.logger.Info("rebook invite sent", "lead_id", lead.ID, "appointment_id", appt.ID)
}

func (s *Service) lead(ctx context.Context, leadID string) (*leads.Lead, error) {
	if s.leadRepo == nil {
		return nil, fmt.Errorf("notify: lead repository not configured")
	}
	lead, err := s.leadRepo.GetByID(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("notify: load lead: %w", err)
	}
	return lead, nil
}
