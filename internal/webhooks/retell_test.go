package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/showrate/platform/internal/billing"
	"github.com/showrate/platform/internal/calls"
	"github.com/showrate/platform/internal/clients"
	"github.com/showrate/platform/internal/leads"
	"github.com/showrate/platform/internal/webhookevents"
	"github.com/showrate/platform/pkg/logging"
)

type retellFixture struct {
	handler *RetellHandler
	events  *webhookevents.InMemoryStore
	leads   *leads.InMemoryRepository
	calls   *calls.InMemoryRepository
	usage   *billing.InMemoryUsageRepository
	lead    *leads.Lead
}

func newRetellFixture(t *testing.T, secret string) *retellFixture {
	t.Helper()
	f := &retellFixture{
		events: webhookevents.NewInMemoryStore(),
		leads:  leads.NewInMemoryRepository(),
		calls:  calls.NewInMemoryRepository(),
		usage:  billing.NewInMemoryUsageRepository(),
	}
	clientRepo := &stubClientRepo{client: &clients.Client{
		ID:                 "client-1",
		StripeCustomerID:   "cus_1",
		PerMinuteRateCents: 20,
	}}

	lead, err := f.leads.Create(context.Background(), &leads.Lead{
		ClientID:   "client-1",
		CampaignID: "camp-1",
		FirstName:  "Dana",
		Phone:      "555-201-1234",
		Email:      "dana@example.com",
	})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	f.lead = lead

	f.handler = NewRetellHandler(secret, f.events, f.leads, f.calls, clientRepo, f.usage, nil, logging.New("error"))
	return f
}

func (f *retellFixture) post(t *testing.T, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/retell", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.Handle(rec, req)
	return rec
}

func TestRetellCallStarted(t *testing.T) {
	f := newRetellFixture(t, "")

	rec := f.post(t, `{"event_type":"call.started","call_id":"call_abc","to_number":"(555) 201-1234"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	call, err := f.calls.GetByProviderCallID(context.Background(), "call_abc")
	if err != nil {
		t.Fatalf("call not logged: %v", err)
	}
	if call.LeadID != f.lead.ID || call.ClientID != "client-1" {
		t.Errorf("call attribution wrong: %+v", call)
	}

	lead, _ := f.leads.GetByID(context.Background(), f.lead.ID)
	if lead.CallAttempts != 1 {
		t.Errorf("call attempts = %d", lead.CallAttempts)
	}
	if lead.Status != leads.StatusContacted {
		t.Errorf("lead status = %s", lead.Status)
	}
}

func TestRetellCallStartedRedelivery(t *testing.T) {
	f := newRetellFixture(t, "")
	body := `{"event_type":"call.started","call_id":"call_abc","to_number":"+15552011234"}`

	for i := 0; i < 3; i++ {
		rec := f.post(t, body, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: status = %d", i, rec.Code)
		}
	}

	lead, _ := f.leads.GetByID(context.Background(), f.lead.ID)
	if lead.CallAttempts != 1 {
		t.Errorf("redelivery inflated call attempts to %d", lead.CallAttempts)
	}
}

func TestRetellCallStartedUnknownLead(t *testing.T) {
	f := newRetellFixture(t, "")

	rec := f.post(t, `{"event_type":"call.started","call_id":"call_x","to_number":"+15559999999"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown lead must still be acknowledged, status = %d", rec.Code)
	}
	if _, err := f.calls.GetByProviderCallID(context.Background(), "call_x"); err == nil {
		t.Error("no call should be logged for an unknown lead")
	}

	// The delivery is a logged success, not a failure.
	evts := f.events.All()
	if len(evts) != 1 || !evts[0].Processed || evts[0].Error != "" {
		t.Errorf("event log state wrong: %+v", evts)
	}
}

func TestRetellCallEndedCreatesUsage(t *testing.T) {
	f := newRetellFixture(t, "")
	f.post(t, `{"event_type":"call.started","call_id":"call_abc","to_number":"+15552011234"}`, nil)

	body := `{"event_type":"call.ended","call_id":"call_abc","call_duration":125,"transcript":"hi","recording_url":"https://r/1"}`
	rec := f.post(t, body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	call, _ := f.calls.GetByProviderCallID(context.Background(), "call_abc")
	if call.Status != calls.StatusCompleted || call.DurationSeconds != 125 {
		t.Errorf("call not completed: %+v", call)
	}

	period := billing.BillingPeriod(time.Now())
	records, _ := f.usage.ListUnbilled(context.Background(), "client-1", period)
	if len(records) != 1 {
		t.Fatalf("expected 1 usage record, got %d", len(records))
	}
	// 125s at 20 cents/min: 2.08 minutes, 42 cents.
	if records[0].Minutes != 2.08 || records[0].AmountCents != 42 {
		t.Errorf("usage = %.2f min / %d cents", records[0].Minutes, records[0].AmountCents)
	}

	// Redelivery never double-bills.
	f.post(t, body, nil)
	records, _ = f.usage.ListUnbilled(context.Background(), "client-1", period)
	if len(records) != 1 {
		t.Errorf("redelivery created a second usage record, got %d", len(records))
	}
}

func TestRetellCallEndedUnknownCall(t *testing.T) {
	f := newRetellFixture(t, "")

	rec := f.post(t, `{"event_type":"call.ended","call_id":"ghost","call_duration":60}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown call must still be acknowledged, status = %d", rec.Code)
	}
	records, _ := f.usage.ListUnbilled(context.Background(), "client-1", billing.BillingPeriod(time.Now()))
	if len(records) != 0 {
		t.Errorf("no usage should be recorded, got %d", len(records))
	}
}

func TestRetellCallAnalyzedOutcomeMapping(t *testing.T) {
	cases := []struct {
		outcome string
		want    leads.Status
	}{
		{"appointment_set", leads.StatusBooked},
		{"callback_requested", leads.StatusCallback},
		{"not_interested", leads.StatusDNC},
		{"dnc", leads.StatusDNC},
		{"voicemail", leads.StatusContacted}, // unmapped outcome leaves the lead alone
	}

	for _, tc := range cases {
		f := newRetellFixture(t, "")
		f.post(t, `{"event_type":"call.started","call_id":"call_1","to_number":"+15552011234"}`, nil)

		body := `{"event_type":"call.analyzed","call_id":"call_1","call_analysis":{"outcome":"` + tc.outcome + `","summary":"s"}}`
		rec := f.post(t, body, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tc.outcome, rec.Code)
		}

		lead, _ := f.leads.GetByID(context.Background(), f.lead.ID)
		if lead.Status != tc.want {
			t.Errorf("%s: lead status = %s, want %s", tc.outcome, lead.Status, tc.want)
		}

		call, _ := f.calls.GetByProviderCallID(context.Background(), "call_1")
		if call.Outcome != tc.outcome {
			t.Errorf("%s: call outcome = %s", tc.outcome, call.Outcome)
		}
	}
}

func TestRetellStatusNeverRegresses(t *testing.T) {
	f := newRetellFixture(t, "")
	if err := f.leads.SetStatus(context.Background(), f.lead.ID, leads.StatusBooked); err != nil {
		t.Fatalf("seed status: %v", err)
	}

	f.post(t, `{"event_type":"call.started","call_id":"call_2","to_number":"+15552011234"}`, nil)

	lead, _ := f.leads.GetByID(context.Background(), f.lead.ID)
	if lead.Status != leads.StatusBooked {
		t.Errorf("booked lead regressed to %s", lead.Status)
	}
	if lead.CallAttempts != 1 {
		t.Errorf("attempt should still count, got %d", lead.CallAttempts)
	}
}

func TestRetellSignature(t *testing.T) {
	f := newRetellFixture(t, "retellsecret")
	body := `{"event_type":"call.started","call_id":"call_abc","to_number":"+15552011234"}`

	rec := f.post(t, body, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("missing signature: status = %d", rec.Code)
	}

	rec = f.post(t, body, map[string]string{"X-Retell-Signature": hexHMAC("retellsecret", []byte(body))})
	if rec.Code != http.StatusOK {
		t.Errorf("valid signature: status = %d", rec.Code)
	}
}

func TestRetellBadJSON(t *testing.T) {
	f := newRetellFixture(t, "")
	rec := f.post(t, `{nope`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}
