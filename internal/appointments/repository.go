package appointments

import (
	"context"
	"time"
)

// Repository defines the interface for appointment storage.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id string) (*Appointment, error)
	GetByBookingUID(ctx context.Context, bookingUID string) (*Appointment, error)

	// Reschedule updates the time window, bumps the reschedule counter, and
	// resets all reminder-sent flags.
	Reschedule(ctx context.Context, bookingUID string, params RescheduleParams) (*Appointment, error)

	// Cancel marks the booking cancelled. Cancellation is terminal for the uid.
	Cancel(ctx context.Context, bookingUID string) (*Appointment, error)

	// RecordVerification writes the reviewer's outcome. show_verified is set
	// only for a shown outcome. Only the first verification ever writes;
	// an already-verified appointment returns ErrAlreadyVerified untouched.
	RecordVerification(ctx context.Context, id string, outcome VerifyOutcome, verifiedBy, notes string, at time.Time) (*Appointment, error)

	// CountVerifiedShown counts shown-and-verified appointments for a client.
	CountVerifiedShown(ctx context.Context, clientID string) (int, error)

	// MarkReminderSent flips one reminder flag (offset is "24h", "2h" or "15m").
	MarkReminderSent(ctx context.Context, id, offset string) error

	// ListUnverified lists past appointments still awaiting verification.
	ListUnverified(ctx context.Context, clientID string, before time.Time) ([]Appointment, error)
}
