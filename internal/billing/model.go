package billing

import "time"

// MilestoneStatus tracks a milestone from achievement to payment.
type MilestoneStatus string

const (
	MilestonePending  MilestoneStatus = "pending"
	MilestoneInvoiced MilestoneStatus = "invoiced"
	MilestonePaid     MilestoneStatus = "paid"
	MilestoneFailed   MilestoneStatus = "failed"
)

// Milestone records one crossed appointment threshold for a client. At most
// one row may exist per (client_id, milestone_number); the database unique
// constraint is the authoritative guard.
type Milestone struct {
	ID                string          `json:"id"`
	ClientID          string          `json:"client_id"`
	MilestoneNumber   int             `json:"milestone_number"`
	AppointmentsCount int             `json:"appointments_count"`
	AmountCents       int64           `json:"amount_cents"`
	Status            MilestoneStatus `json:"status"`
	StripeInvoiceID   string          `json:"stripe_invoice_id,omitempty"`
	AchievedAt        time.Time       `json:"achieved_at"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// InvoiceType distinguishes per-minute usage invoices from milestone bonuses.
type InvoiceType string

const (
	InvoiceTypeUsage     InvoiceType = "usage"
	InvoiceTypeMilestone InvoiceType = "milestone"
)

// InvoiceStatus mirrors the payment provider's invoice lifecycle.
type InvoiceStatus string

const (
	InvoiceDraft  InvoiceStatus = "draft"
	InvoiceOpen   InvoiceStatus = "open"
	InvoicePaid   InvoiceStatus = "paid"
	InvoiceVoid   InvoiceStatus = "void"
	InvoiceFailed InvoiceStatus = "failed"
)

// Invoice is our record of a payment-provider invoice.
type Invoice struct {
	ID               string        `json:"id"`
	ClientID         string        `json:"client_id"`
	StripeInvoiceID  string        `json:"stripe_invoice_id"`
	Type             InvoiceType   `json:"invoice_type"`
	AmountCents      int64         `json:"amount_cents"`
	Status           InvoiceStatus `json:"status"`
	BillingPeriod    string        `json:"billing_period,omitempty"`
	HostedInvoiceURL string        `json:"hosted_invoice_url,omitempty"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// UsageRecord is one billable unit of call minutes, created exactly once per
// completed call.
type UsageRecord struct {
	ID            string    `json:"id"`
	ClientID      string    `json:"client_id"`
	CallID        string    `json:"call_id"`
	Minutes       float64   `json:"minutes"`
	AmountCents   int64     `json:"amount_cents"`
	BillingPeriod string    `json:"billing_period"`
	Billed        bool      `json:"billed"`
	InvoiceID     string    `json:"invoice_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
