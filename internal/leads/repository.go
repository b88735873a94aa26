package leads

import (
	"context"
	"time"
)

// Repository defines the interface for lead storage.
type Repository interface {
	Create(ctx context.Context, lead *Lead) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)

	// FindByPhone matches a lead by exact E.164 phone. More than one match
	// returns ErrAmbiguousMatch.
	FindByPhone(ctx context.Context, phone string) (*Lead, error)

	// ResolveByContact matches phone first, then falls back to email.
	// Ambiguity on the winning key is an error, never a guess.
	ResolveByContact(ctx context.Context, phone, email string) (*Lead, error)

	// RecordCallAttempt increments the attempt counter, stamps last contact,
	// and advances a pending lead to contacted.
	RecordCallAttempt(ctx context.Context, id string, at time.Time) error

	// AdvanceStatus moves the lead forward in the funnel. It is a no-op when
	// the lead already sits at or past the requested status.
	AdvanceStatus(ctx context.Context, id string, status Status) error

	// SetStatus sets the status unconditionally (cancellations re-open booked
	// leads as callback).
	SetStatus(ctx context.Context, id string, status Status) error

	// LinkAppointment ties the lead to its appointment and marks it booked.
	LinkAppointment(ctx context.Context, id, appointmentID string) error

	ListByCampaign(ctx context.Context, campaignID string, status Status) ([]Lead, error)
}
