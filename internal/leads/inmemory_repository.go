package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is a map-backed Repository used in tests and local
// development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{leads: make(map[string]*Lead)}
}

// Create creates a new lead in memory.
func (r *InMemoryRepository) Create(ctx context.Context, lead *Lead) (*Lead, error) {
	phone := NormalizePhone(lead.Phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	created := *lead
	created.ID = uuid.New().String()
	created.Phone = phone
	if created.Status == "" {
		created.Status = StatusPending
	}
	created.CreatedAt = time.Now().UTC()

	r.mu.Lock()
	r.leads[created.ID] = &created
	r.mu.Unlock()

	out := created
	return &out, nil
}

// GetByID retrieves a lead by ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	out := *lead
	return &out, nil
}

// FindByPhone matches by exact phone.
func (r *InMemoryRepository) FindByPhone(ctx context.Context, phone string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.single(func(l *Lead) bool { return l.Phone == phone })
}

// ResolveByContact matches phone first, then email.
func (r *InMemoryRepository) ResolveByContact(ctx context.Context, phone, email string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if normalized := NormalizePhone(phone); normalized != "" {
		lead, err := r.single(func(l *Lead) bool { return l.Phone == normalized })
		if err == nil || err == ErrAmbiguousMatch {
			return lead, err
		}
	}
	if email == "" {
		return nil, ErrLeadNotFound
	}
	return r.single(func(l *Lead) bool { return l.Email != "" && l.Email == email })
}

// RecordCallAttempt implements Repository.
func (r *InMemoryRepository) RecordCallAttempt(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	lead.CallAttempts++
	t := at
	lead.LastContactAt = &t
	if lead.Status == StatusPending {
		lead.Status = StatusContacted
	}
	return nil
}

// AdvanceStatus implements Repository.
func (r *InMemoryRepository) AdvanceStatus(ctx context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	if !lead.Status.Outranks(status) {
		lead.Status = status
	}
	return nil
}

// SetStatus implements Repository.
func (r *InMemoryRepository) SetStatus(ctx context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	lead.Status = status
	return nil
}

// LinkAppointment implements Repository.
func (r *InMemoryRepository) LinkAppointment(ctx context.Context, id, appointmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return ErrLeadNotFound
	}
	lead.AppointmentID = appointmentID
	lead.Status = StatusBooked
	return nil
}

// ListByCampaign implements Repository.
func (r *InMemoryRepository) ListByCampaign(ctx context.Context, campaignID string, status Status) ([]Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Lead
	for _, l := range r.leads {
		if l.CampaignID != campaignID {
			continue
		}
		if status != "" && l.Status != status {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (r *InMemoryRepository) single(match func(*Lead) bool) (*Lead, error) {
	var found *Lead
	for _, l := range r.leads {
		if !match(l) {
			continue
		}
		if found != nil {
			return nil, ErrAmbiguousMatch
		}
		found = l
	}
	if found == nil {
		return nil, ErrLeadNotFound
	}
	out := *found
	return &out, nil
}
