package appointments

import "errors"

var (
	// ErrAppointmentNotFound is returned when no appointment matches the lookup.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrAlreadyVerified is returned when a reviewer records a different
	// outcome for an appointment that already has one. Re-recording the same
	// outcome is a no-op, not an error.
	ErrAlreadyVerified = errors.New("appointment already verified with a different outcome")

	// ErrInvalidOutcome is returned for an outcome other than shown/no_show.
	ErrInvalidOutcome = errors.New("invalid verification outcome")
)
