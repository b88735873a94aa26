package leads

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/showrate/platform/pkg/logging"
)

// Handler handles HTTP requests for lead import and listing.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new leads handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// ImportRequest is the body for POST /api/leads/import.
type ImportRequest struct {
	ClientID   string      `json:"client_id"`
	CampaignID string      `json:"campaign_id"`
	Leads      []ImportRow `json:"leads"`
}

// ImportResult reports what an import run did.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

// Import handles POST /api/leads/import. Rows without a dialable phone are
// skipped, not fatal: a half-good list still imports its good half.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClientID == "" {
		http.Error(w, "client_id is required", http.StatusBadRequest)
		return
	}
	if len(req.Leads) == 0 {
		http.Error(w, "no leads to import", http.StatusBadRequest)
		return
	}

	result := ImportResult{Total: len(req.Leads)}
	for _, row := range req.Leads {
		if err := row.Validate(); err != nil {
			result.Skipped++
			continue
		}
		_, err := h.repo.Create(r.Context(), &Lead{
			ClientID:   req.ClientID,
			CampaignID: req.CampaignID,
			FirstName:  row.FirstName,
			LastName:   row.LastName,
			Email:      row.Email,
			Phone:      row.Phone,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidPhone) {
				result.Skipped++
				continue
			}
			h.logger.Error("lead import insert failed", "error", err, "client_id", req.ClientID)
			http.Error(w, "import failed", http.StatusInternalServerError)
			return
		}
		result.Imported++
	}

	if result.Imported == 0 {
		http.Error(w, "no valid leads found, phone number is required", http.StatusBadRequest)
		return
	}

	h.logger.Info("leads imported",
		"client_id", req.ClientID, "campaign_id", req.CampaignID,
		"imported", result.Imported, "skipped", result.Skipped)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// List handles GET /api/leads?campaign_id=...&status=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	campaignID := r.URL.Query().Get("campaign_id")
	if campaignID == "" {
		http.Error(w, "missing campaign_id", http.StatusBadRequest)
		return
	}
	status := Status(r.URL.Query().Get("status"))

	list, err := h.repo.ListByCampaign(r.Context(), campaignID, status)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err, "campaign_id", campaignID)
		http.Error(w, "failed to list leads", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"leads": list,
		"count": len(list),
	})
}
