package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/showrate/platform/internal/clients"
	"github.com/showrate/platform/pkg/logging"
)

type stubClientGetter struct {
	client *clients.Client
	err    error
}

func (s *stubClientGetter) GetByID(ctx context.Context, id string) (*clients.Client, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.client, nil
}

type stubShownCounter struct {
	count int
	err   error
}

func (s *stubShownCounter) CountVerifiedShown(ctx context.Context, clientID string) (int, error) {
	return s.count, s.err
}

type stubProvider struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubProvider) CreateAndFinalizeInvoice(ctx context.Context, customerRef string, amountCents int64, description string) (*InvoiceRef, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &InvoiceRef{
		ID:               fmt.Sprintf("in_test_%d", n),
		HostedInvoiceURL: "https://invoice.stripe.com/i/test",
		Status:           InvoiceOpen,
	}, nil
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testClient() *clients.Client {
	return &clients.Client{
		ID:                   "client-1",
		Name:                 "Acme Dental",
		StripeCustomerID:     "cus_test123",
		PerMinuteRateCents:   20,
		MilestoneAmountCents: 50000,
		MilestoneInterval:    25,
		Status:               clients.StatusActive,
	}
}

func newTestEvaluator(shown *stubShownCounter, provider *stubProvider) (*Evaluator, *InMemoryMilestoneRepository, *InMemoryInvoiceRepository) {
	milestones := NewInMemoryMilestoneRepository()
	invoices := NewInMemoryInvoiceRepository()
	eval := NewEvaluator(
		&stubClientGetter{client: testClient()},
		shown,
		milestones,
		invoices,
		provider,
		nil,
		time.Second,
		logging.New("error"),
	)
	return eval, milestones, invoices
}

func TestEvaluateBelowThreshold(t *testing.T) {
	for _, count := range []int{0, 1, 24, 26, 49, 51} {
		eval, milestones, _ := newTestEvaluator(&stubShownCounter{count: count}, &stubProvider{})

		achieved, _, err := eval.Evaluate(context.Background(), "client-1")
		if err != nil {
			t.Fatalf("count %d: unexpected error: %v", count, err)
		}
		if achieved {
			t.Errorf("count %d: expected no milestone", count)
		}
		pending, _ := milestones.ListPending(context.Background())
		if len(pending) != 0 {
			t.Errorf("count %d: expected no milestone rows, got %d", count, len(pending))
		}
	}
}

func TestEvaluateAtThreshold(t *testing.T) {
	cases := []struct {
		count      int
		wantNumber int
	}{
		{25, 1},
		{50, 2},
		{250, 10},
	}
	for _, tc := range cases {
		provider := &stubProvider{}
		eval, milestones, _ := newTestEvaluator(&stubShownCounter{count: tc.count}, provider)

		achieved, number, err := eval.Evaluate(context.Background(), "client-1")
		if err != nil {
			t.Fatalf("count %d: unexpected error: %v", tc.count, err)
		}
		if !achieved {
			t.Fatalf("count %d: expected milestone achieved", tc.count)
		}
		if number != tc.wantNumber {
			t.Errorf("count %d: expected milestone number %d, got %d", tc.count, tc.wantNumber, number)
		}
		if provider.callCount() != 1 {
			t.Errorf("count %d: expected 1 invoice call, got %d", tc.count, provider.callCount())
		}

		rows, _ := milestones.ListByClient(context.Background(), "client-1")
		if len(rows) != 1 {
			t.Fatalf("count %d: expected 1 milestone row, got %d", tc.count, len(rows))
		}
		if rows[0].Status != MilestoneInvoiced {
			t.Errorf("count %d: expected milestone invoiced, got %s", tc.count, rows[0].Status)
		}
		if rows[0].AppointmentsCount != tc.count {
			t.Errorf("count %d: expected appointments count %d, got %d", tc.count, tc.count, rows[0].AppointmentsCount)
		}
	}
}

func TestEvaluateDuplicateThreshold(t *testing.T) {
	provider := &stubProvider{}
	eval, _, _ := newTestEvaluator(&stubShownCounter{count: 25}, provider)

	achieved, _, err := eval.Evaluate(context.Background(), "client-1")
	if err != nil || !achieved {
		t.Fatalf("first evaluate: achieved=%v err=%v", achieved, err)
	}

	// Redelivered verification lands on the same count.
	achieved, number, err := eval.Evaluate(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("second evaluate: unexpected error: %v", err)
	}
	if achieved {
		t.Error("second evaluate should not report a new milestone")
	}
	if number != 1 {
		t.Errorf("second evaluate should still report number 1, got %d", number)
	}
	if provider.callCount() != 1 {
		t.Errorf("expected a single invoice call, got %d", provider.callCount())
	}
}

func TestEvaluateConcurrent(t *testing.T) {
	provider := &stubProvider{}
	eval, milestones, _ := newTestEvaluator(&stubShownCounter{count: 25}, provider)

	const workers = 8
	results := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			achieved, _, err := eval.Evaluate(context.Background(), "client-1")
			if err != nil {
				t.Errorf("concurrent evaluate: %v", err)
			}
			results <- achieved
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for achieved := range results {
		if achieved {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly one winner, got %d", winners)
	}

	rows, _ := milestones.ListByClient(context.Background(), "client-1")
	if len(rows) != 1 {
		t.Errorf("expected exactly one milestone row, got %d", len(rows))
	}
	if provider.callCount() != 1 {
		t.Errorf("expected exactly one invoice call, got %d", provider.callCount())
	}
}

func TestEvaluateInvoiceFailureLeavesPending(t *testing.T) {
	provider := &stubProvider{err: errors.New("stripe down")}
	eval, milestones, _ := newTestEvaluator(&stubShownCounter{count: 25}, provider)

	achieved, number, err := eval.Evaluate(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !achieved || number != 1 {
		t.Fatalf("milestone should still be achieved: achieved=%v number=%d", achieved, number)
	}

	pending, _ := milestones.ListPending(context.Background())
	if len(pending) != 1 {
		t.Fatalf("expected milestone to stay pending, got %d pending", len(pending))
	}
	if pending[0].StripeInvoiceID != "" {
		t.Errorf("pending milestone should not carry an invoice id, got %q", pending[0].StripeInvoiceID)
	}
}

func TestEvaluateIntervalDisabled(t *testing.T) {
	client := testClient()
	client.MilestoneInterval = 0
	eval := NewEvaluator(
		&stubClientGetter{client: client},
		&stubShownCounter{count: 25},
		NewInMemoryMilestoneRepository(),
		NewInMemoryInvoiceRepository(),
		&stubProvider{},
		nil,
		time.Second,
		logging.New("error"),
	)

	achieved, _, err := eval.Evaluate(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if achieved {
		t.Error("disabled interval should never achieve a milestone")
	}
}

func TestEvaluateCountError(t *testing.T) {
	eval, _, _ := newTestEvaluator(&stubShownCounter{err: errors.New("db down")}, &stubProvider{})

	if _, _, err := eval.Evaluate(context.Background(), "client-1"); err == nil {
		t.Fatal("expected error when the shown count cannot be computed")
	}
}
