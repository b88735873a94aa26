package leads

import "time"

// Status tracks where a lead sits in the calling funnel.
type Status string

const (
	StatusPending   Status = "pending"
	StatusContacted Status = "contacted"
	StatusCallback  Status = "callback"
	StatusBooked    Status = "booked"
	StatusShown     Status = "shown"
	StatusNoShow    Status = "no_show"
	StatusDNC       Status = "dnc"
)

// statusRank orders funnel statuses so webhook handlers never move a lead
// backwards. Terminal outcomes (shown, no_show, dnc) outrank everything the
// call pipeline can set.
var statusRank = map[Status]int{
	StatusPending:   0,
	StatusContacted: 1,
	StatusCallback:  2,
	StatusBooked:    3,
	StatusShown:     4,
	StatusNoShow:    4,
	StatusDNC:       5,
}

// Outranks reports whether s is at least as far along the funnel as other.
func (s Status) Outranks(other Status) bool {
	return statusRank[s] >= statusRank[other]
}

// Lead is a prospective customer contact being worked by a campaign.
// Leads are never deleted, only status-transitioned.
type Lead struct {
	ID            string     `json:"id"`
	ClientID      string     `json:"client_id"`
	CampaignID    string     `json:"campaign_id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone"`
	Status        Status     `json:"status"`
	CallAttempts  int        `json:"call_attempts"`
	AppointmentID string     `json:"appointment_id,omitempty"`
	LastContactAt *time.Time `json:"last_contact_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ImportRow is one lead in an import request.
type ImportRow struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Validate checks the row carries enough to dial.
func (r *ImportRow) Validate() error {
	if NormalizePhone(r.Phone) == "" {
		return ErrInvalidPhone
	}
	return nil
}
