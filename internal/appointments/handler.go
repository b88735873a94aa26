package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/showrate/platform/pkg/logging"
)

// Handler handles HTTP requests for appointment verification.
type Handler struct {
	service *Service
	repo    Repository
	logger  *logging.Logger
}

// NewHandler creates a new appointments handler.
func NewHandler(service *Service, repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, repo: repo, logger: logger}
}

// VerifyRequest is the body for POST /api/appointments/verify.
type VerifyRequest struct {
	AppointmentID string `json:"appointment_id"`
	Outcome       string `json:"outcome"`
	VerifiedBy    string `json:"verified_by"`
	Notes         string `json:"notes,omitempty"`
}

// Verify handles POST /api/appointments/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AppointmentID == "" || req.Outcome == "" || req.VerifiedBy == "" {
		http.Error(w, "appointment_id, outcome and verified_by are required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Verify(r.Context(), req.AppointmentID, VerifyOutcome(req.Outcome), req.VerifiedBy, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, ErrAppointmentNotFound):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidOutcome):
			http.Error(w, "outcome must be shown or no_show", http.StatusBadRequest)
		case errors.Is(err, ErrAlreadyVerified):
			http.Error(w, "appointment already verified with a different outcome", http.StatusConflict)
		default:
			h.logger.Error("verification failed", "error", err, "appointment_id", req.AppointmentID)
			http.Error(w, "verification failed", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("appointment verified",
		"appointment_id", req.AppointmentID,
		"outcome", req.Outcome,
		"milestone_achieved", result.MilestoneAchieved,
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// ListUnverified handles GET /api/appointments/unverified?client_id=...
// It lists past appointments still awaiting a reviewer decision.
func (h *Handler) ListUnverified(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		http.Error(w, "missing client_id", http.StatusBadRequest)
		return
	}

	appts, err := h.repo.ListUnverified(r.Context(), clientID, time.Now().UTC())
	if err != nil {
		h.logger.Error("failed to list unverified appointments", "error", err, "client_id", clientID)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"appointments": appts,
		"count":        len(appts),
	})
}
