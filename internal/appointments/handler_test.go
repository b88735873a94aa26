package appointments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/showrate/platform/pkg/logging"
)

func newHandlerFixture(t *testing.T) (*Handler, *verifyFixture) {
	t.Helper()
	f := newVerifyFixture(t)
	return NewHandler(f.service, f.repo, logging.New("error")), f
}

func postVerify(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/appointments/verify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Verify(rec, req)
	return rec
}

func TestHandlerVerify(t *testing.T) {
	h, f := newHandlerFixture(t)
	f.evaluator.achieved = true
	f.evaluator.number = 2

	rec := postVerify(t, h, `{"appointment_id":"`+f.appt.ID+`","outcome":"shown","verified_by":"ops@showrate.io"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result VerifyResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.MilestoneAchieved || result.MilestoneNumber != 2 {
		t.Errorf("milestone = %v/%d", result.MilestoneAchieved, result.MilestoneNumber)
	}
}

func TestHandlerVerifyErrors(t *testing.T) {
	h, f := newHandlerFixture(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing fields", `{"appointment_id":"x"}`, http.StatusBadRequest},
		{"bad outcome", `{"appointment_id":"` + f.appt.ID + `","outcome":"maybe","verified_by":"ops"}`, http.StatusBadRequest},
		{"not found", `{"appointment_id":"ghost","outcome":"shown","verified_by":"ops"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := postVerify(t, h, tc.body)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestHandlerVerifyConflict(t *testing.T) {
	h, f := newHandlerFixture(t)

	rec := postVerify(t, h, `{"appointment_id":"`+f.appt.ID+`","outcome":"shown","verified_by":"ops"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("first verify: status = %d", rec.Code)
	}

	rec = postVerify(t, h, `{"appointment_id":"`+f.appt.ID+`","outcome":"no_show","verified_by":"ops"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("conflicting outcome: status = %d, want 409", rec.Code)
	}

	// The same outcome again is fine.
	rec = postVerify(t, h, `{"appointment_id":"`+f.appt.ID+`","outcome":"shown","verified_by":"ops"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("repeat outcome: status = %d, want 200", rec.Code)
	}
}

func TestHandlerListUnverified(t *testing.T) {
	h, f := newHandlerFixture(t)

	// One past appointment awaiting review plus the fixture's future one.
	past, err := f.repo.Create(context.Background(), &Appointment{
		ClientID:    "client-1",
		LeadID:      "lead-2",
		BookingUID:  "bk_past",
		ScheduledAt: time.Now().Add(-48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/appointments/unverified?client_id=client-1", nil)
	rec := httptest.NewRecorder()
	h.ListUnverified(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Appointments []Appointment `json:"appointments"`
		Count        int           `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || resp.Appointments[0].ID != past.ID {
		t.Errorf("expected only the past appointment, got %+v", resp)
	}

	rec = httptest.NewRecorder()
	h.ListUnverified(rec, httptest.NewRequest(http.MethodGet, "/api/appointments/unverified", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing client_id: status = %d", rec.Code)
	}
}
