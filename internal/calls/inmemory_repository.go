package calls

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is a map-backed Repository used in tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	calls map[string]*Call // keyed by provider call id
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{calls: make(map[string]*Call)}
}

// Create inserts a started call, returning the existing row on redelivery.
func (r *InMemoryRepository) Create(ctx context.Context, call *Call) (*Call, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.calls[call.ProviderCallID]; ok {
		out := *existing
		return &out, false, nil
	}

	created := *call
	created.ID = uuid.New().String()
	created.Status = StatusStarted
	if created.StartedAt == nil {
		now := time.Now().UTC()
		created.StartedAt = &now
	}
	created.CreatedAt = time.Now().UTC()
	r.calls[created.ProviderCallID] = &created

	out := created
	return &out, true, nil
}

// GetByProviderCallID fetches a call by the external id.
func (r *InMemoryRepository) GetByProviderCallID(ctx context.Context, providerCallID string) (*Call, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	call, ok := r.calls[providerCallID]
	if !ok {
		return nil, ErrCallNotFound
	}
	out := *call
	return &out, nil
}

// Complete implements Repository.
func (r *InMemoryRepository) Complete(ctx context.Context, providerCallID string, params CompleteParams) (*Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[providerCallID]
	if !ok {
		return nil, ErrCallNotFound
	}
	if call.Status == StatusStarted {
		call.Status = StatusCompleted
		call.DurationSeconds = params.DurationSeconds
		call.Transcript = params.Transcript
		call.RecordingURL = params.RecordingURL
		ended := params.EndedAt
		call.EndedAt = &ended
	}
	out := *call
	return &out, nil
}

// Annotate implements Repository.
func (r *InMemoryRepository) Annotate(ctx context.Context, providerCallID, outcome, summary string) (*Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[providerCallID]
	if !ok {
		return nil, ErrCallNotFound
	}
	call.Outcome = outcome
	call.Summary = summary
	out := *call
	return &out, nil
}
