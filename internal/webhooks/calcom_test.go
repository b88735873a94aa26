package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/showrate/platform/internal/appointments"
	"github.com/showrate/platform/internal/leads"
	"github.com/showrate/platform/internal/webhookevents"
	"github.com/showrate/platform/pkg/logging"
)

type calcomFixture struct {
	handler    *CalComHandler
	events     *webhookevents.InMemoryStore
	leads      *leads.InMemoryRepository
	appts      *appointments.InMemoryRepository
	dispatcher *stubDispatcher
	lead       *leads.Lead
}

func newCalComFixture(t *testing.T) *calcomFixture {
	t.Helper()
	f := &calcomFixture{
		events:     webhookevents.NewInMemoryStore(),
		leads:      leads.NewInMemoryRepository(),
		appts:      appointments.NewInMemoryRepository(),
		dispatcher: &stubDispatcher{},
	}

	lead, err := f.leads.Create(context.Background(), &leads.Lead{
		ClientID:   "client-1",
		CampaignID: "camp-1",
		FirstName:  "Dana",
		Phone:      "+15552011234",
		Email:      "dana@example.com",
	})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	f.lead = lead

	f.handler = NewCalComHandler("", f.events, f.leads, f.appts, f.dispatcher, nil, logging.New("error"))
	return f
}

func (f *calcomFixture) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/calcom", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.Handle(rec, req)
	return rec
}

const bookingCreatedByEmail = `{
	"triggerEvent": "BOOKING_CREATED",
	"uid": "bk_100",
	"startTime": "2026-09-10T15:00:00Z",
	"endTime": "2026-09-10T15:30:00Z",
	"attendees": [{"name": "Dana Reyes", "email": "dana@example.com"}]
}`

func TestCalComBookingCreated(t *testing.T) {
	f := newCalComFixture(t)

	rec := f.post(t, `{
		"triggerEvent": "BOOKING_CREATED",
		"uid": "bk_100",
		"startTime": "2026-09-10T15:00:00Z",
		"endTime": "2026-09-10T15:30:00Z",
		"attendees": [{"name": "Dana Reyes", "email": "other@example.com", "phoneNumber": "555-201-1234"}]
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	appt, err := f.appts.GetByBookingUID(context.Background(), "bk_100")
	if err != nil {
		t.Fatalf("appointment not created: %v", err)
	}
	if appt.LeadID != f.lead.ID {
		t.Errorf("appointment lead = %s", appt.LeadID)
	}
	if appt.DurationMinutes != 30 {
		t.Errorf("duration = %d", appt.DurationMinutes)
	}
	if !appt.ScheduledAt.Equal(time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("scheduled_at = %s", appt.ScheduledAt)
	}

	lead, _ := f.leads.GetByID(context.Background(), f.lead.ID)
	if lead.Status != leads.StatusBooked {
		t.Errorf("lead status = %s", lead.Status)
	}
	if lead.AppointmentID != appt.ID {
		t.Errorf("lead appointment link = %s", lead.AppointmentID)
	}

	if len(f.dispatcher.scheduled) != 1 || f.dispatcher.scheduled[0] != appt.ID {
		t.Errorf("reminders not scheduled: %v", f.dispatcher.scheduled)
	}
}

func TestCalComBookingCreatedEmailFallback(t *testing.T) {
	f := newCalComFixture(t)

	rec := f.post(t, bookingCreatedByEmail)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, err := f.appts.GetByBookingUID(context.Background(), "bk_100"); err != nil {
		t.Fatalf("email fallback failed: %v", err)
	}
}

func TestCalComOrphanBooking(t *testing.T) {
	f := newCalComFixture(t)

	rec := f.post(t, `{
		"triggerEvent": "BOOKING_CREATED",
		"uid": "bk_101",
		"startTime": "2026-09-10T15:00:00Z",
		"endTime": "2026-09-10T15:30:00Z",
		"attendees": [{"name": "Stranger", "email": "stranger@example.com"}]
	}`)
	// Acknowledged so Cal.com stops retrying, but recorded as a failure.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, err := f.appts.GetByBookingUID(context.Background(), "bk_101"); err == nil {
		t.Error("orphan booking must not create an appointment")
	}

	evts := f.events.All()
	if len(evts) != 1 || evts[0].Error == "" {
		t.Errorf("orphan should be logged as a failed event: %+v", evts)
	}
	if evts[0].Processed {
		t.Error("failed event must stay unprocessed for reconciliation")
	}
	if len(f.dispatcher.scheduled) != 0 {
		t.Error("no reminders for an orphan booking")
	}
}

func TestCalComBookingRescheduled(t *testing.T) {
	f := newCalComFixture(t)
	f.post(t, bookingCreatedByEmail)

	appt, _ := f.appts.GetByBookingUID(context.Background(), "bk_100")
	if err := f.appts.MarkReminderSent(context.Background(), appt.ID, "24h"); err != nil {
		t.Fatalf("seed reminder flag: %v", err)
	}

	rec := f.post(t, `{
		"triggerEvent": "BOOKING_RESCHEDULED",
		"uid": "bk_100",
		"startTime": "2026-09-12T10:00:00Z",
		"endTime": "2026-09-12T10:45:00Z"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	appt, _ = f.appts.GetByBookingUID(context.Background(), "bk_100")
	if appt.Status != appointments.StatusRescheduled {
		t.Errorf("status = %s", appt.Status)
	}
	if appt.RescheduleCount != 1 {
		t.Errorf("reschedule count = %d", appt.RescheduleCount)
	}
	if appt.DurationMinutes != 45 {
		t.Errorf("duration = %d", appt.DurationMinutes)
	}
	if appt.Reminder24hSent {
		t.Error("reminder flags must reset on reschedule")
	}
	if len(f.dispatcher.scheduled) != 2 {
		t.Errorf("reminders should be re-scheduled, got %v", f.dispatcher.scheduled)
	}
}

func TestCalComBookingCancelled(t *testing.T) {
	f := newCalComFixture(t)
	f.post(t, bookingCreatedByEmail)

	rec := f.post(t, `{"triggerEvent": "BOOKING_CANCELLED", "uid": "bk_100"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	appt, _ := f.appts.GetByBookingUID(context.Background(), "bk_100")
	if appt.Status != appointments.StatusCancelled {
		t.Errorf("status = %s", appt.Status)
	}

	lead, _ := f.leads.GetByID(context.Background(), f.lead.ID)
	if lead.Status != leads.StatusCallback {
		t.Errorf("cancelled booking should re-open the lead, status = %s", lead.Status)
	}
	if len(f.dispatcher.cancelled) != 1 || f.dispatcher.cancelled[0] != appt.ID {
		t.Errorf("reminders not cancelled: %v", f.dispatcher.cancelled)
	}
}

func TestCalComUnknownBookingLifecycle(t *testing.T) {
	f := newCalComFixture(t)

	rec := f.post(t, `{"triggerEvent": "BOOKING_CANCELLED", "uid": "ghost"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("unknown cancel: status = %d", rec.Code)
	}
	rec = f.post(t, `{"triggerEvent": "BOOKING_RESCHEDULED", "uid": "ghost", "startTime": "2026-09-12T10:00:00Z", "endTime": "2026-09-12T10:30:00Z"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("unknown reschedule: status = %d", rec.Code)
	}
}
