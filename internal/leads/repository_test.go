package leads

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedLead(t *testing.T, repo *InMemoryRepository, phone, email string) *Lead {
	t.Helper()
	lead, err := repo.Create(context.Background(), &Lead{
		ClientID:   "client-1",
		CampaignID: "campaign-1",
		FirstName:  "Sam",
		Phone:      phone,
		Email:      email,
	})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return lead
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(555) 201-1234", "+15552011234"},
		{"555-201-1234", "+15552011234"},
		{"+15552011234", "+15552011234"},
		{"15552011234", "+15552011234"},
		{"garbage", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveByContactPhoneWinsOverEmail(t *testing.T) {
	repo := NewInMemoryRepository()
	byPhone := seedLead(t, repo, "+15552011234", "phone@example.com")
	seedLead(t, repo, "+15552015678", "email@example.com")

	lead, err := repo.ResolveByContact(context.Background(), "+15552011234", "email@example.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if lead.ID != byPhone.ID {
		t.Errorf("expected phone match to win, got lead %s", lead.ID)
	}
}

func TestResolveByContactEmailFallback(t *testing.T) {
	repo := NewInMemoryRepository()
	byEmail := seedLead(t, repo, "+15552015678", "email@example.com")

	lead, err := repo.ResolveByContact(context.Background(), "", "email@example.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if lead.ID != byEmail.ID {
		t.Errorf("expected email fallback match, got lead %s", lead.ID)
	}
}

func TestResolveByContactAmbiguousEmail(t *testing.T) {
	repo := NewInMemoryRepository()
	seedLead(t, repo, "+15552011111", "dup@example.com")
	seedLead(t, repo, "+15552012222", "dup@example.com")

	_, err := repo.ResolveByContact(context.Background(), "", "dup@example.com")
	if !errors.Is(err, ErrAmbiguousMatch) {
		t.Fatalf("expected ErrAmbiguousMatch, got %v", err)
	}
}

func TestResolveByContactNotFound(t *testing.T) {
	repo := NewInMemoryRepository()
	_, err := repo.ResolveByContact(context.Background(), "+15559990000", "nobody@example.com")
	if !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestRecordCallAttemptAdvancesPendingOnly(t *testing.T) {
	repo := NewInMemoryRepository()
	lead := seedLead(t, repo, "+15552011234", "")

	if err := repo.RecordCallAttempt(context.Background(), lead.ID, time.Now()); err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), lead.ID)
	if got.Status != StatusContacted || got.CallAttempts != 1 {
		t.Fatalf("expected contacted/1 attempt, got %s/%d", got.Status, got.CallAttempts)
	}

	// A booked lead stays booked when another call lands.
	if err := repo.SetStatus(context.Background(), lead.ID, StatusBooked); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := repo.RecordCallAttempt(context.Background(), lead.ID, time.Now()); err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	got, _ = repo.GetByID(context.Background(), lead.ID)
	if got.Status != StatusBooked {
		t.Errorf("call attempt regressed status to %s", got.Status)
	}
	if got.CallAttempts != 2 {
		t.Errorf("expected 2 attempts, got %d", got.CallAttempts)
	}
}

func TestAdvanceStatusNeverRegresses(t *testing.T) {
	repo := NewInMemoryRepository()
	lead := seedLead(t, repo, "+15552011234", "")

	if err := repo.AdvanceStatus(context.Background(), lead.ID, StatusBooked); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := repo.AdvanceStatus(context.Background(), lead.ID, StatusContacted); err != nil {
		t.Fatalf("advance: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), lead.ID)
	if got.Status != StatusBooked {
		t.Errorf("expected booked to survive contacted, got %s", got.Status)
	}

	if err := repo.AdvanceStatus(context.Background(), lead.ID, StatusDNC); err != nil {
		t.Fatalf("advance: %v", err)
	}
	got, _ = repo.GetByID(context.Background(), lead.ID)
	if got.Status != StatusDNC {
		t.Errorf("expected dnc to advance, got %s", got.Status)
	}
}

func TestCreateRejectsInvalidPhone(t *testing.T) {
	repo := NewInMemoryRepository()
	_, err := repo.Create(context.Background(), &Lead{Phone: "not-a-number"})
	if !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
}
