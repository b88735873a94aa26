package reminders

import (
	"context"
	"errors"
	"time"

	"github.com/showrate/platform/internal/appointments"
	"github.com/showrate/platform/pkg/logging"
)

// AppointmentStore is the slice of appointment storage the worker needs.
type AppointmentStore interface {
	GetByID(ctx context.Context, id string) (*appointments.Appointment, error)
	MarkReminderSent(ctx context.Context, id, offset string) error
}

// ReminderSender delivers one reminder for an appointment.
type ReminderSender interface {
	SendReminder(ctx context.Context, appt *appointments.Appointment, offset string) error
}

// Worker drains due reminders on a polling interval.
type Worker struct {
	schedule *Schedule
	appts    AppointmentStore
	sender   ReminderSender
	interval time.Duration
	logger   *logging.Logger
}

// NewWorker creates a reminder worker. Pass zero interval for the default.
func NewWorker(schedule *Schedule, appts AppointmentStore, sender ReminderSender, interval time.Duration, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		schedule: schedule,
		appts:    appts,
		sender:   sender,
		interval: interval,
		logger:   logger,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("reminder worker started", "interval", w.interval.String())
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			if n, err := w.ProcessDue(ctx, time.Now()); err != nil {
				w.logger.Error("reminder pass failed", "error", err)
			} else if n > 0 {
				w.logger.Info("reminders delivered", "count", n)
			}
		}
	}
}

// ProcessDue delivers every reminder due at now and returns how many were
// sent. A send failure leaves the entry scheduled so the next pass retries it.
func (w *Worker) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	due, err := w.schedule.Due(ctx, now, 100)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, entry := range due {
		delivered, err := w.process(ctx, entry)
		if err != nil {
			w.logger.Warn("reminder delivery failed, will retry",
				"error", err, "appointment_id", entry.AppointmentID, "offset", entry.Offset)
			continue
		}
		if delivered {
			sent++
		}
	}
	return sent, nil
}

func (w *Worker) process(ctx context.Context, entry Entry) (bool, error) {
	appt, err := w.appts.GetByID(ctx, entry.AppointmentID)
	if err != nil {
		if errors.Is(err, appointments.ErrAppointmentNotFound) {
			// Row is gone; nothing to remind about.
			return false, w.schedule.Remove(ctx, entry)
		}
		return false, err
	}

	if !w.shouldSend(appt, entry.Offset) {
		return false, w.schedule.Remove(ctx, entry)
	}

	if err := w.sender.SendReminder(ctx, appt, entry.Offset); err != nil {
		return false, err
	}
	if err := w.appts.MarkReminderSent(ctx, appt.ID, entry.Offset); err != nil {
		return false, err
	}
	return true, w.schedule.Remove(ctx, entry)
}

// shouldSend filters out appointments that no longer want this reminder:
// cancelled bookings, already-verified visits, and offsets already sent.
func (w *Worker) shouldSend(appt *appointments.Appointment, offset string) bool {
	if appt.Status == appointments.StatusCancelled || appt.Verified() {
		return false
	}
	switch offset {
	case "24h":
		return !appt.Reminder24hSent
	case "2h":
		return !appt.Reminder2hSent
	case "15m":
		return !appt.Reminder15mSent
	}
	return false
}
