// Package webhookevents keeps an append-only log of every inbound webhook
// delivery. The log exists for replay and debugging; handlers append before
// doing any work so a failed delivery still leaves a trace.
package webhookevents

import (
	"context"
	"encoding/json"
	"time"
)

// Event is one recorded webhook delivery.
type Event struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	Processed   bool            `json:"processed"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Store appends and resolves webhook delivery records.
type Store interface {
	// Append records an inbound delivery and returns its id.
	Append(ctx context.Context, source, eventType string, payload json.RawMessage) (string, error)

	// MarkProcessed flags the delivery as handled.
	MarkProcessed(ctx context.Context, id string) error

	// MarkFailed records the handler error. The delivery stays unprocessed
	// so it shows up in reconciliation sweeps over processed = FALSE.
	MarkFailed(ctx context.Context, id string, handlerErr error) error

	// ListRecent returns the newest deliveries for a source, most recent first.
	ListRecent(ctx context.Context, source string, limit int) ([]Event, error)
}
