package calls

import "errors"

var (
	// ErrCallNotFound is returned when no call matches the provider call id.
	ErrCallNotFound = errors.New("call not found")
)
