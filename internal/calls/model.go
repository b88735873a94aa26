package calls

import "time"

// Status is the lifecycle state of a call log.
type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Call is one outbound call placed by the voice agent, keyed by the
// provider's call id. A completed call is immutable except for the outcome
// annotation attached by call analysis.
type Call struct {
	ID              string     `json:"id"`
	ClientID        string     `json:"client_id"`
	LeadID          string     `json:"lead_id"`
	CampaignID      string     `json:"campaign_id"`
	ProviderCallID  string     `json:"provider_call_id"`
	Status          Status     `json:"status"`
	DurationSeconds int        `json:"duration_seconds"`
	Transcript      string     `json:"transcript,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	Outcome         string     `json:"outcome,omitempty"`
	RecordingURL    string     `json:"recording_url,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// CompleteParams carries the fields recorded when a call ends.
type CompleteParams struct {
	DurationSeconds int
	Transcript      string
	RecordingURL    string
	EndedAt         time.Time
}
