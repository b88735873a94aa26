package billing

import "context"

// InvoiceRef is the payment provider's handle for a finalized invoice.
type InvoiceRef struct {
	ID               string
	HostedInvoiceURL string
	Status           InvoiceStatus
}

// PaymentProvider creates and finalizes invoices with the payment processor.
// Implementations must bound their own timeouts; evaluator correctness never
// depends on a provider call succeeding.
type PaymentProvider interface {
	CreateAndFinalizeInvoice(ctx context.Context, customerRef string, amountCents int64, description string) (*InvoiceRef, error)
}
