package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryMilestoneRepository is a map-backed MilestoneRepository used in
// tests. It enforces the same (client, number) uniqueness as the database
// constraint.
type InMemoryMilestoneRepository struct {
	mu   sync.Mutex
	rows map[string]*Milestone // keyed by client_id/number
}

// NewInMemoryMilestoneRepository creates a new in-memory repository.
func NewInMemoryMilestoneRepository() *InMemoryMilestoneRepository {
	return &InMemoryMilestoneRepository{rows: make(map[string]*Milestone)}
}

func milestoneKey(clientID string, number int) string {
	return fmt.Sprintf("%s/%d", clientID, number)
}

// CreateIfAbsent implements MilestoneRepository.
func (r *InMemoryMilestoneRepository) CreateIfAbsent(ctx context.Context, m *Milestone) (*Milestone, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := milestoneKey(m.ClientID, m.MilestoneNumber)
	if existing, ok := r.rows[key]; ok {
		out := *existing
		return &out, false, nil
	}

	created := *m
	created.ID = uuid.New().String()
	created.Status = MilestonePending
	created.AchievedAt = time.Now().UTC()
	created.CreatedAt = created.AchievedAt
	r.rows[key] = &created

	out := created
	return &out, true, nil
}

// MarkInvoiced implements MilestoneRepository.
func (r *InMemoryMilestoneRepository) MarkInvoiced(ctx context.Context, id, stripeInvoiceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.rows {
		if m.ID == id {
			m.Status = MilestoneInvoiced
			m.StripeInvoiceID = stripeInvoiceID
			return nil
		}
	}
	return ErrMilestoneNotFound
}

// MarkPaidByStripeInvoiceID implements MilestoneRepository.
func (r *InMemoryMilestoneRepository) MarkPaidByStripeInvoiceID(ctx context.Context, stripeInvoiceID string, paidAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.rows {
		if m.StripeInvoiceID == stripeInvoiceID {
			m.Status = MilestonePaid
			t := paidAt
			m.PaidAt = &t
			return nil
		}
	}
	return ErrMilestoneNotFound
}

// ListByClient implements MilestoneRepository.
func (r *InMemoryMilestoneRepository) ListByClient(ctx context.Context, clientID string) ([]Milestone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Milestone
	for _, m := range r.rows {
		if m.ClientID == clientID {
			out = append(out, *m)
		}
	}
	return out, nil
}

// ListPending implements MilestoneRepository.
func (r *InMemoryMilestoneRepository) ListPending(ctx context.Context) ([]Milestone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Milestone
	for _, m := range r.rows {
		if m.Status == MilestonePending {
			out = append(out, *m)
		}
	}
	return out, nil
}

// InMemoryInvoiceRepository is a map-backed InvoiceRepository used in tests.
type InMemoryInvoiceRepository struct {
	mu   sync.Mutex
	rows map[string]*Invoice // keyed by stripe invoice id
}

// NewInMemoryInvoiceRepository creates a new in-memory repository.
func NewInMemoryInvoiceRepository() *InMemoryInvoiceRepository {
	return &InMemoryInvoiceRepository{rows: make(map[string]*Invoice)}
}

// Create implements InvoiceRepository.
func (r *InMemoryInvoiceRepository) Create(ctx context.Context, inv *Invoice) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := *inv
	created.ID = uuid.New().String()
	if created.Status == "" {
		created.Status = InvoiceOpen
	}
	created.CreatedAt = time.Now().UTC()
	r.rows[created.StripeInvoiceID] = &created

	out := created
	return &out, nil
}

// GetByStripeInvoiceID implements InvoiceRepository.
func (r *InMemoryInvoiceRepository) GetByStripeInvoiceID(ctx context.Context, stripeInvoiceID string) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.rows[stripeInvoiceID]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	out := *inv
	return &out, nil
}

// MarkPaid implements InvoiceRepository.
func (r *InMemoryInvoiceRepository) MarkPaid(ctx context.Context, stripeInvoiceID string, paidAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.rows[stripeInvoiceID]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.Status = InvoicePaid
	t := paidAt
	inv.PaidAt = &t
	return nil
}

// MarkFailed implements InvoiceRepository.
func (r *InMemoryInvoiceRepository) MarkFailed(ctx context.Context, stripeInvoiceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.rows[stripeInvoiceID]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.Status = InvoiceFailed
	return nil
}

// InMemoryUsageRepository is a map-backed UsageRepository used in tests.
type InMemoryUsageRepository struct {
	mu   sync.Mutex
	rows map[string]*UsageRecord // keyed by call id
}

// NewInMemoryUsageRepository creates a new in-memory repository.
func NewInMemoryUsageRepository() *InMemoryUsageRepository {
	return &InMemoryUsageRepository{rows: make(map[string]*UsageRecord)}
}

// Create implements UsageRepository.
func (r *InMemoryUsageRepository) Create(ctx context.Context, u *UsageRecord) (*UsageRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.rows[u.CallID]; ok {
		out := *existing
		return &out, false, nil
	}

	created := *u
	created.ID = uuid.New().String()
	created.CreatedAt = time.Now().UTC()
	r.rows[created.CallID] = &created

	out := created
	return &out, true, nil
}

// ListUnbilled implements UsageRepository.
func (r *InMemoryUsageRepository) ListUnbilled(ctx context.Context, clientID, period string) ([]UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []UsageRecord
	for _, u := range r.rows {
		if u.ClientID == clientID && u.BillingPeriod == period && !u.Billed {
			out = append(out, *u)
		}
	}
	return out, nil
}

// AssignInvoice implements UsageRepository.
func (r *InMemoryUsageRepository) AssignInvoice(ctx context.Context, recordIDs []string, invoiceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[string]bool, len(recordIDs))
	for _, id := range recordIDs {
		wanted[id] = true
	}
	for _, u := range r.rows {
		if wanted[u.ID] {
			u.InvoiceID = invoiceID
		}
	}
	return nil
}

// MarkBilledByInvoice implements UsageRepository.
func (r *InMemoryUsageRepository) MarkBilledByInvoice(ctx context.Context, invoiceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.rows {
		if u.InvoiceID == invoiceID {
			u.Billed = true
		}
	}
	return nil
}

// UnbilledSummary implements UsageRepository.
func (r *InMemoryUsageRepository) UnbilledSummary(ctx context.Context, clientID string) (float64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var minutes float64
	var cents int64
	for _, u := range r.rows {
		if u.ClientID == clientID && !u.Billed {
			minutes += u.Minutes
			cents += u.AmountCents
		}
	}
	return minutes, cents, nil
}
