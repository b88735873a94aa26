package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/showrate/platform/internal/appointments"
	"github.com/showrate/platform/internal/leads"
	"github.com/showrate/platform/pkg/logging"
)

func newTestRouter() http.Handler {
	apptRepo := appointments.NewInMemoryRepository()
	service := appointments.NewService(apptRepo, nil, nil, nil, logging.New("error"))
	leadRepo := leads.NewInMemoryRepository()

	return New(&Config{
		Logger:              logging.New("error"),
		AppointmentsHandler: appointments.NewHandler(service, apptRepo, logging.New("error")),
		LeadsHandler:        leads.NewHandler(leadRepo, logging.New("error")),
	})
}

func TestHealthRoute(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRoutesWired(t *testing.T) {
	r := newTestRouter()

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodPost, "/api/appointments/verify", `{}`, http.StatusBadRequest},
		{http.MethodGet, "/api/appointments/unverified", "", http.StatusBadRequest},
		{http.MethodGet, "/api/leads", "", http.StatusBadRequest},
		{http.MethodPost, "/api/leads/import", `{}`, http.StatusBadRequest},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		var req *http.Request
		if tc.body != "" {
			req = httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		} else {
			req = httptest.NewRequest(tc.method, tc.path, nil)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s %s: status = %d, want %d", tc.method, tc.path, rec.Code, tc.want)
		}
	}
}
