package webhookevents

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresStoreAppendAndResolve(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithQuerier(mock)
	payload := json.RawMessage(`{"event":"call_ended"}`)

	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs(pgxmock.AnyArg(), "retell", "call_ended", payload).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.Append(context.Background(), "retell", "call_ended", payload)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id == "" {
		t.Fatal("append returned empty id")
	}

	mock.ExpectExec("UPDATE webhook_events SET processed = TRUE").
		WithArgs(id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := store.MarkProcessed(context.Background(), id); err != nil {
		t.Fatalf("mark processed: %v", err)
	}

	// A failed delivery records the error without touching processed.
	mock.ExpectExec("UPDATE webhook_events SET error").
		WithArgs(id, "lead not found").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := store.MarkFailed(context.Background(), id, errors.New("lead not found")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInMemoryStore(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	id1, err := store.Append(ctx, "calcom", "BOOKING_CREATED", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	id2, _ := store.Append(ctx, "calcom", "BOOKING_CANCELLED", json.RawMessage(`{}`))
	store.Append(ctx, "stripe", "invoice.paid", json.RawMessage(`{}`))

	if err := store.MarkProcessed(ctx, id1); err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	if err := store.MarkFailed(ctx, id2, errors.New("orphan booking")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	recent, err := store.ListRecent(ctx, "calcom", 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 calcom events, got %d", len(recent))
	}
	// Most recent first.
	if recent[0].EventType != "BOOKING_CANCELLED" {
		t.Errorf("expected newest first, got %q", recent[0].EventType)
	}
	if recent[0].Error != "orphan booking" {
		t.Errorf("expected failure message, got %q", recent[0].Error)
	}
	if recent[0].Processed {
		t.Error("failed event must stay unprocessed")
	}
	if !recent[1].Processed {
		t.Error("first event should be processed")
	}
}
