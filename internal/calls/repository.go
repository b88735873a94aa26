package calls

import "context"

// Repository defines the interface for call log storage.
type Repository interface {
	// Create inserts a started call. A redelivered provider call id returns
	// the existing row with created = false.
	Create(ctx context.Context, call *Call) (*Call, bool, error)
	GetByProviderCallID(ctx context.Context, providerCallID string) (*Call, error)

	// Complete finalizes a started call. Completing an already-completed call
	// overwrites nothing and returns the stored row.
	Complete(ctx context.Context, providerCallID string, params CompleteParams) (*Call, error)

	// Annotate attaches analysis output (outcome, summary) to a call.
	Annotate(ctx context.Context, providerCallID, outcome, summary string) (*Call, error)
}
