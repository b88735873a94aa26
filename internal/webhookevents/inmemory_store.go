package webhookevents

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a slice-backed Store used in tests.
type InMemoryStore struct {
	mu     sync.Mutex
	events []Event
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Append implements Store.
func (s *InMemoryStore) Append(ctx context.Context, source, eventType string, payload json.RawMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Event{
		ID:        uuid.New().String(),
		Source:    source,
		EventType: eventType,
		Payload:   append(json.RawMessage(nil), payload...),
		CreatedAt: time.Now().UTC(),
	}
	s.events = append(s.events, e)
	return e.ID, nil
}

// MarkProcessed implements Store.
func (s *InMemoryStore) MarkProcessed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].ID == id {
			now := time.Now().UTC()
			s.events[i].Processed = true
			s.events[i].ProcessedAt = &now
			return nil
		}
	}
	return nil
}

// MarkFailed implements Store. The event stays unprocessed.
func (s *InMemoryStore) MarkFailed(ctx context.Context, id string, handlerErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].Error = handlerErr.Error()
			return nil
		}
	}
	return nil
}

// ListRecent implements Store.
func (s *InMemoryStore) ListRecent(ctx context.Context, source string, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	var out []Event
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].Source == source {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

// All returns every recorded event in append order. Test helper.
func (s *InMemoryStore) All() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
