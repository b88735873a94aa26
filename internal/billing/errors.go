package billing

import "errors"

var (
	// ErrInvoiceNotFound is returned when no invoice matches the provider id.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrMilestoneNotFound is returned when no milestone matches the lookup.
	ErrMilestoneNotFound = errors.New("milestone not found")

	// ErrNothingToInvoice is returned when a usage invoicing run finds no
	// unbilled records for the period.
	ErrNothingToInvoice = errors.New("no unbilled usage records for period")
)
