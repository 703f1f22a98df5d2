package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithBackoffRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), Policy{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsedTime:  time.Second,
	}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithBackoffRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithBackoff(ctx, DefaultPolicy(), func() error {
		return errors.New("always fails")
	})
	if err == nil {
		t.Fatal("expected cancellation to surface as an error")
	}
}

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	b := NewCircuitBreaker(WithBreakerThreshold(3))
	for i := 0; i < 3; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("attempt %d: breaker should still be closed: %v", i, err)
		}
		b.Failure()
	}
	if err := b.Allow(); err != ErrCircuitOpen {
		t.Fatalf("expected breaker to be open after 3 failures, got %v", err)
	}
}

func TestCircuitBreakerHalfOpensAfterResetTimeout(t *testing.T) {
	clock := time.Now()
	b := NewCircuitBreaker(
		WithBreakerThreshold(1),
		WithResetTimeout(10*time.Millisecond),
		WithClock(func() time.Time { return clock }),
	)
	_ = b.Allow()
	b.Failure()
	if err := b.Allow(); err != ErrCircuitOpen {
		t.Fatalf("expected open immediately after tripping, got %v", err)
	}
	clock = clock.Add(20 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe to be allowed after cooldown, got %v", err)
	}
}

func TestCircuitBreakerSuccessCloses(t *testing.T) {
	b := NewCircuitBreaker(WithBreakerThreshold(1))
	_ = b.Allow()
	b.Failure()
	clock := time.Now().Add(time.Hour)
	b.now = func() time.Time { return clock }
	if err := b.Allow(); err != nil {
		t.Fatal(err)
	}
	b.Success()
	if err := b.Allow(); err != nil {
		t.Fatalf("expected closed breaker to allow, got %v", err)
	}
}
