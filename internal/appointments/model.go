package appointments

import "time"

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusConfirmed   Status = "confirmed"
	StatusShown       Status = "shown"
	StatusNoShow      Status = "no_show"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// VerifyOutcome is the result a human reviewer records for an appointment.
type VerifyOutcome string

const (
	OutcomeShown  VerifyOutcome = "shown"
	OutcomeNoShow VerifyOutcome = "no_show"
)

// Valid reports whether the outcome is one a reviewer may record.
func (o VerifyOutcome) Valid() bool {
	return o == OutcomeShown || o == OutcomeNoShow
}

// Appointment is a scheduled meeting produced by a successful call, keyed by
// the scheduling provider's booking uid. The uid is stable across reschedules;
// cancellation is terminal for the uid.
type Appointment struct {
	ID              string     `json:"id"`
	ClientID        string     `json:"client_id"`
	LeadID          string     `json:"lead_id"`
	CampaignID      string     `json:"campaign_id"`
	BookingUID      string     `json:"booking_uid"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          Status     `json:"status"`
	RescheduleCount int        `json:"reschedule_count"`
	ShowVerified    bool       `json:"show_verified"`
	VerifiedBy      string     `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	VerifiedOutcome string     `json:"verified_outcome,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Reminder24hSent bool       `json:"reminder_24h_sent"`
	Reminder2hSent  bool       `json:"reminder_2h_sent"`
	Reminder15mSent bool       `json:"reminder_15m_sent"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Verified reports whether a reviewer has already recorded an outcome.
func (a *Appointment) Verified() bool {
	return a.VerifiedOutcome != ""
}

// RescheduleParams carries the fields updated when a booking moves.
type RescheduleParams struct {
	ScheduledAt     time.Time
	DurationMinutes int
}
