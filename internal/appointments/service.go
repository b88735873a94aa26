package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/showrate/platform/internal/leads"
	"github.com/showrate/platform/pkg/logging"
)

// MilestoneEvaluator recomputes milestone progress for a client after a shown
// verification. It reports whether a new milestone was achieved and its number.
type MilestoneEvaluator interface {
	Evaluate(ctx context.Context, clientID string) (achieved bool, milestoneNumber int, err error)
}

// RebookNotifier triggers the re-engagement flow for a no-show.
type RebookNotifier interface {
	TriggerRebook(ctx context.Context, appt *Appointment)
}

// LeadStatusWriter advances the linked lead through the funnel.
type LeadStatusWriter interface {
	AdvanceStatus(ctx context.Context, id string, status leads.Status) error
}

// VerifyResult is what the verification call reports back to the reviewer.
type VerifyResult struct {
	Appointment       *Appointment `json:"appointment"`
	AlreadyVerified   bool         `json:"already_verified"`
	MilestoneAchieved bool         `json:"milestone_achieved"`
	MilestoneNumber   int          `json:"milestone_number,omitempty"`
}

// Service is the single mutation point for marking an appointment attended or
// missed. A shown outcome synchronously evaluates milestones so the reviewer
// sees a newly crossed threshold immediately.
type Service struct {
	repo      Repository
	evaluator MilestoneEvaluator
	notifier  RebookNotifier
	leadRepo  LeadStatusWriter
	logger    *logging.Logger
}

// NewService creates a verification service.
func NewService(repo Repository, evaluator MilestoneEvaluator, notifier RebookNotifier, leadRepo LeadStatusWriter, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:      repo,
		evaluator: evaluator,
		notifier:  notifier,
		leadRepo:  leadRepo,
		logger:    logger,
	}
}

// Verify records the reviewer's outcome for an appointment.
//
// Verification is idempotent: repeating the same outcome returns the stored
// result without touching milestones; a conflicting outcome is rejected with
// ErrAlreadyVerified. Milestone evaluation and rebook dispatch happen after
// the verification write commits, so their failures never roll it back.
func (s *Service) Verify(ctx context.Context, appointmentID string, outcome VerifyOutcome, verifiedBy, notes string) (*VerifyResult, error) {
	if !outcome.Valid() {
		return nil, ErrInvalidOutcome
	}
	if verifiedBy == "" {
		return nil, fmt.Errorf("appointments: verify: verifier identity required")
	}

	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appt.Verified() {
		if appt.VerifiedOutcome == string(outcome) {
			return &VerifyResult{Appointment: appt, AlreadyVerified: true}, nil
		}
		return nil, ErrAlreadyVerified
	}

	appt, err = s.repo.RecordVerification(ctx, appointmentID, outcome, verifiedBy, notes, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ErrAlreadyVerified) {
			// Lost the write race to a concurrent verification; the stored
			// outcome decides whether we are a repeat or a conflict.
			appt, err = s.repo.GetByID(ctx, appointmentID)
			if err != nil {
				return nil, err
			}
			if appt.VerifiedOutcome == string(outcome) {
				return &VerifyResult{Appointment: appt, AlreadyVerified: true}, nil
			}
			return nil, ErrAlreadyVerified
		}
		return nil, err
	}

	result := &VerifyResult{Appointment: appt}

	switch outcome {
	case OutcomeShown:
		s.advanceLead(ctx, appt.LeadID, leads.StatusShown)
		if s.evaluator == nil {
			break
		}
		achieved, number, err := s.evaluator.Evaluate(ctx, appt.ClientID)
		if err != nil {
			// The shown write already committed; milestone state is
			// recoverable from the appointment table.
			s.logger.Error("appointments: milestone evaluation failed",
				"error", err, "client_id", appt.ClientID, "appointment_id", appt.ID)
			break
		}
		result.MilestoneAchieved = achieved
		result.MilestoneNumber = number
	case OutcomeNoShow:
		s.advanceLead(ctx, appt.LeadID, leads.StatusNoShow)
		if s.notifier != nil {
			s.notifier.TriggerRebook(ctx, appt)
		}
	}

	return result, nil
}

func (s *Service) advanceLead(ctx context.Context, leadID string, status leads.Status) {
	if s.leadRepo == nil {
		return
	}
	if err := s.leadRepo.AdvanceStatus(ctx, leadID, status); err != nil {
		s.logger.Warn("appointments: lead status update failed",
			"error", err, "lead_id", leadID, "status", status)
	}
}
