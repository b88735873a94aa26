package clients

import "time"

// Status is the account standing of a client.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Client is a paying customer running outbound calling campaigns.
// Billing terms (per-minute rate, milestone bonus) live here.
type Client struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Email                string    `json:"email"`
	CompanyName          string    `json:"company_name,omitempty"`
	StripeCustomerID     string    `json:"stripe_customer_id,omitempty"`
	PerMinuteRateCents   int       `json:"per_minute_rate_cents"`
	MilestoneAmountCents int64     `json:"milestone_amount_cents"`
	MilestoneInterval    int       `json:"milestone_interval"`
	Status               Status    `json:"status"`
	CreatedAt            time.Time `json:"created_at"`
}
