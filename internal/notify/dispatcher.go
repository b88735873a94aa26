package notify

import (
	"context"
	"time"

	"github.com/showrate/platform/internal/appointments"
	"github.com/showrate/platform/pkg/logging"
)

// ReminderScheduler registers and drops reminder due-times for appointments.
// Satisfied by reminders.Schedule.
type ReminderScheduler interface {
	Set(ctx context.Context, appointmentID string, scheduledAt time.Time) error
	Cancel(ctx context.Context, appointmentID string) error
}

// Dispatcher is the notification entry point the booking and verification
// flows call into. Every method swallows its own failures: a reminder or
// rebook that cannot be dispatched never fails the flow that triggered it.
type Dispatcher struct {
	scheduler ReminderScheduler
	service   *Service
	logger    *logging.Logger
}

// NewDispatcher creates a dispatcher. Either collaborator may be nil, turning
// the corresponding method into a logged no-op.
func NewDispatcher(scheduler ReminderScheduler, service *Service, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		scheduler: scheduler,
		service:   service,
		logger:    logger,
	}
}

// ScheduleReminders registers the reminder offsets for an appointment,
// replacing any earlier schedule for the same appointment.
func (d *Dispatcher) ScheduleReminders(ctx context.Context, appt *appointments.Appointment) {
	if d.scheduler == nil {
		return
	}
	if err := d.scheduler.Set(ctx, appt.ID, appt.ScheduledAt); err != nil {
		d.logger.Warn("notify: reminder scheduling failed",
			"error", err, "appointment_id", appt.ID)
	}
}

// CancelReminders drops any pending reminders for an appointment.
func (d *Dispatcher) CancelReminders(ctx context.Context, appointmentID string) {
	if d.scheduler == nil {
		return
	}
	if err := d.scheduler.Cancel(ctx, appointmentID); err != nil {
		d.logger.Warn("notify: reminder cancel failed",
			"error", err, "appointment_id", appointmentID)
	}
}

// TriggerRebook invites a no-show lead to rebook.
func (d *Dispatcher) TriggerRebook(ctx context.Context, appt *appointments.Appointment) {
	if d.service == nil {
		return
	}
	d.service.TriggerRebook(ctx, appt)
}
