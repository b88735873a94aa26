package appointments

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is a map-backed Repository used in tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*Appointment
	byUID map[string]*Appointment
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:  make(map[string]*Appointment),
		byUID: make(map[string]*Appointment),
	}
}

// Create inserts a scheduled appointment, returning the existing row when the
// booking uid was already seen.
func (r *InMemoryRepository) Create(ctx context.Context, appt *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byUID[appt.BookingUID]; ok {
		out := *existing
		return &out, nil
	}

	created := *appt
	created.ID = uuid.New().String()
	created.Status = StatusScheduled
	created.CreatedAt = time.Now().UTC()
	r.byID[created.ID] = &created
	r.byUID[created.BookingUID] = &created

	out := created
	return &out, nil
}

// GetByID fetches an appointment by primary key.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *appt
	return &out, nil
}

// GetByBookingUID fetches an appointment by the scheduling provider's uid.
func (r *InMemoryRepository) GetByBookingUID(ctx context.Context, bookingUID string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.byUID[bookingUID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *appt
	return &out, nil
}

// Reschedule implements Repository.
func (r *InMemoryRepository) Reschedule(ctx context.Context, bookingUID string, params RescheduleParams) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.byUID[bookingUID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	appt.ScheduledAt = params.ScheduledAt
	appt.DurationMinutes = params.DurationMinutes
	appt.Status = StatusRescheduled
	appt.RescheduleCount++
	appt.Reminder24hSent = false
	appt.Reminder2hSent = false
	appt.Reminder15mSent = false

	out := *appt
	return &out, nil
}

// Cancel implements Repository.
func (r *InMemoryRepository) Cancel(ctx context.Context, bookingUID string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.byUID[bookingUID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	appt.Status = StatusCancelled

	out := *appt
	return &out, nil
}

// RecordVerification implements Repository.
func (r *InMemoryRepository) RecordVerification(ctx context.Context, id string, outcome VerifyOutcome, verifiedBy, notes string, at time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if appt.VerifiedOutcome != "" {
		return nil, ErrAlreadyVerified
	}
	appt.Status = Status(outcome)
	appt.ShowVerified = outcome == OutcomeShown
	appt.VerifiedBy = verifiedBy
	t := at
	appt.VerifiedAt = &t
	appt.VerifiedOutcome = string(outcome)
	appt.Notes = notes

	out := *appt
	return &out, nil
}

// CountVerifiedShown implements Repository.
func (r *InMemoryRepository) CountVerifiedShown(ctx context.Context, clientID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, a := range r.byID {
		if a.ClientID == clientID && a.ShowVerified {
			count++
		}
	}
	return count, nil
}

// MarkReminderSent implements Repository.
func (r *InMemoryRepository) MarkReminderSent(ctx context.Context, id, offset string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.byID[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	switch offset {
	case "24h":
		appt.Reminder24hSent = true
	case "2h":
		appt.Reminder2hSent = true
	case "15m":
		appt.Reminder15mSent = true
	}
	return nil
}

// ListUnverified implements Repository.
func (r *InMemoryRepository) ListUnverified(ctx context.Context, clientID string, before time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Appointment
	for _, a := range r.byID {
		if a.ClientID != clientID || a.Verified() || a.Status == StatusCancelled {
			continue
		}
		if !a.ScheduledAt.Before(before) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}
