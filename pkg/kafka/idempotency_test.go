package kafka

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// countingHandler returns a Handler that counts invocations and
// returns err on every call.
func countingHandler(count *int32, err error) Handler {
	return func(ctx context.Context, event *Event) error {
		atomic.AddInt32(count, 1)
		return err
	}
}

// testEvent builds an envelope directly so the EventID is controlled.
func testEvent(eventID string) *Event {
	return &Event{
		EventID:     eventID,
		EventType:   "catalog.item_created",
		AggregateID: "item-123",
	}
}

func dedup(store IdempotencyStore, inner Handler) Handler {
	return IdempotentHandler("urbancart.catalog.item_created", "fanout", store, inner, testLogger())
}

func TestMemoryIdempotencyStore_AddAndContains(t *testing.T) {
	store := NewMemoryIdempotencyStore(1 * time.Minute)
	ctx := context.Background()

	if err := store.Add(ctx, "evt-1"); err != nil {
		t.Fatalf("Add() returned error: %v", err)
	}

	got, err := store.Contains(ctx, "evt-1")
	if err != nil {
		t.Fatalf("Contains() returned error: %v", err)
	}
	if !got {
		t.Error("Contains(evt-1) = false, want true after Add")
	}

	got, err = store.Contains(ctx, "unknown-id")
	if err != nil {
		t.Fatalf("Contains() returned error: %v", err)
	}
	if got {
		t.Error("Contains(unknown-id) = true, want false")
	}
}

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewMemoryIdempotencyStore(10 * time.Millisecond)
	ctx := context.Background()

	if err := store.Add(ctx, "evt-expire"); err != nil {
		t.Fatalf("Add() returned error: %v", err)
	}

	got, _ := store.Contains(ctx, "evt-expire")
	if !got {
		t.Error("Contains(evt-expire) = false immediately after Add, want true")
	}

	time.Sleep(20 * time.Millisecond)

	got, _ = store.Contains(ctx, "evt-expire")
	if got {
		t.Error("Contains(evt-expire) = true after TTL expiry, want false")
	}
}

func TestMemoryIdempotencyStore_Len(t *testing.T) {
	store := NewMemoryIdempotencyStore(1 * time.Minute)
	ctx := context.Background()

	if store.Len() != 0 {
		t.Errorf("Len() = %d for new store, want 0", store.Len())
	}

	_ = store.Add(ctx, "a")
	_ = store.Add(ctx, "b")
	_ = store.Add(ctx, "b") // re-adds collapse

	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestMemoryIdempotencyStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryIdempotencyStore(1 * time.Minute)
	ctx := context.Background()

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			_ = store.Add(ctx, "evt-concurrent")
			_, _ = store.Contains(ctx, "evt-concurrent")
		}()
	}
	wg.Wait()

	if store.Len() != 1 {
		t.Errorf("Len() = %d after concurrent adds of same key, want 1", store.Len())
	}
}

func TestIdempotentHandler_FirstCallProcesses(t *testing.T) {
	store := NewMemoryIdempotencyStore(1 * time.Minute)

	var calls int32
	handler := dedup(store, countingHandler(&calls, nil))

	if err := handler(context.Background(), testEvent("evt-first")); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("inner handler called %d times, want 1", calls)
	}
}

func TestIdempotentHandler_DuplicateSkipped(t *testing.T) {
	store := NewMemoryIdempotencyStore(1 * time.Minute)

	var calls int32
	handler := dedup(store, countingHandler(&calls, nil))
	event := testEvent("evt-dup")

	if err := handler(context.Background(), event); err != nil {
		t.Fatalf("first call returned error: %v", err)
	}
	if err := handler(context.Background(), event); err != nil {
		t.Fatalf("second call returned error: %v", err)
	}

	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("inner handler called %d times, want 1 (duplicate should be skipped)", calls)
	}
}

func TestIdempotentHandler_EmptyEventIDPassesThrough(t *testing.T) {
	store := NewMemoryIdempotencyStore(1 * time.Minute)

	var calls int32
	handler := dedup(store, countingHandler(&calls, nil))

	for i := 0; i < 3; i++ {
		if err := handler(context.Background(), testEvent("")); err != nil {
			t.Fatalf("call %d returned error: %v", i+1, err)
		}
	}

	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("inner handler called %d times, want 3 (no ID means no dedup)", calls)
	}
}

func TestIdempotentHandler_HandlerErrorNotMarkedProcessed(t *testing.T) {
	store := NewMemoryIdempotencyStore(1 * time.Minute)
	handlerErr := errors.New("processing failed")

	var calls int32
	handler := dedup(store, countingHandler(&calls, handlerErr))
	event := testEvent("evt-err")

	if err := handler(context.Background(), event); !errors.Is(err, handlerErr) {
		t.Fatalf("expected handlerErr, got: %v", err)
	}

	exists, _ := store.Contains(context.Background(), "evt-err")
	if exists {
		t.Error("event ID was stored despite handler error")
	}

	// A retry must still reach the handler.
	if err := handler(context.Background(), event); !errors.Is(err, handlerErr) {
		t.Fatalf("expected handlerErr on retry, got: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("inner handler called %d times, want 2", calls)
	}
}

func TestIdempotentHandler_StoreErrorFailsOpen(t *testing.T) {
	var calls int32
	handler := dedup(&failingIdempotencyStore{}, countingHandler(&calls, nil))

	if err := handler(context.Background(), testEvent("evt-store-fail")); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("inner handler called %d times, want 1 (fail-open must still process)", calls)
	}
}

func TestIdempotentHandler_DistinctIDsBothProcessed(t *testing.T) {
	store := NewMemoryIdempotencyStore(1 * time.Minute)

	var calls int32
	handler := dedup(store, countingHandler(&calls, nil))

	if err := handler(context.Background(), testEvent("evt-aaa")); err != nil {
		t.Fatalf("handler(evt-aaa) returned error: %v", err)
	}
	if err := handler(context.Background(), testEvent("evt-bbb")); err != nil {
		t.Fatalf("handler(evt-bbb) returned error: %v", err)
	}

	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("inner handler called %d times, want 2", calls)
	}

	for _, id := range []string{"evt-aaa", "evt-bbb"} {
		exists, err := store.Contains(context.Background(), id)
		if err != nil {
			t.Fatalf("store.Contains(%q) error: %v", id, err)
		}
		if !exists {
			t.Errorf("store.Contains(%q) = false, want true", id)
		}
	}
}

type failingIdempotencyStore struct{}

func (f *failingIdempotencyStore) Contains(_ context.Context, _ string) (bool, error) {
	return false, errors.New("store unavailable")
}

func (f *failingIdempotencyStore) Add(_ context.Context, _ string) error {
	return errors.New("store unavailable")
}
