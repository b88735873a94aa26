package leads

import "errors"

var (
	// ErrLeadNotFound is returned when no lead matches the lookup.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrAmbiguousMatch is returned when a contact lookup matches more than
	// one lead. Callers must not guess which one was meant.
	ErrAmbiguousMatch = errors.New("ambiguous lead match")

	// ErrInvalidPhone is returned when a phone number cannot be dialed.
	ErrInvalidPhone = errors.New("invalid phone number")
)
