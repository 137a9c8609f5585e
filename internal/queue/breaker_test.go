package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestCircuitOpensAndFailsFast(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cfg := fastConfig()
	cfg.MaxRetries = 0
	cfg.CircuitBreakerThreshold = 3
	cfg.CircuitBreakerResetTime = 30 * time.Second
	q := New("test", cfg, WithClock(clock.Now))

	var calls atomic.Int32
	failing := func(context.Context) error {
		calls.Add(1)
		return tempErr{temporary: true}
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := q.Do(ctx, "down", failing); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if got := q.Stats().Circuit; got != StateOpen {
		t.Fatalf("circuit = %s, want open", got)
	}

	start := time.Now()
	err := q.Do(ctx, "down", failing)
	elapsed := time.Since(start)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if calls.Load() != 3 {
		t.Errorf("fn called while circuit open (calls = %d)", calls.Load())
	}
	if elapsed > 50*time.Millisecond {
		t.Errorf("fail-fast took %s", elapsed)
	}
	var coe *CircuitOpenError
	if errors.As(err, &coe) && coe.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %s, want > 0", coe.RetryAfter)
	}

	// After the cooldown a single probe is admitted; success closes it.
	clock.Advance(31 * time.Second)
	if err := q.Do(ctx, "up", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if got := q.Stats().Circuit; got != StateClosed {
		t.Errorf("circuit = %s, want closed", got)
	}
}

func TestCircuitFailedProbeReopens(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	cfg := fastConfig()
	cfg.MaxRetries = 0
	cfg.CircuitBreakerThreshold = 1
	cfg.CircuitBreakerResetTime = time.Second
	q := New("test", cfg, WithClock(clock.Now))

	failing := func(context.Context) error { return tempErr{temporary: true} }
	ctx := context.Background()
	_ = q.Do(ctx, "down", failing)
	clock.Advance(2 * time.Second)
	_ = q.Do(ctx, "probe", failing)
	if got := q.Stats().Circuit; got != StateOpen {
		t.Fatalf("circuit = %s, want open after failed probe", got)
	}
	if err := q.Do(ctx, "down", failing); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestBreakerSingleHalfOpenProbe(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := NewBreaker(1, time.Second)
	b.now = clock.Now
	b.Failure()
	clock.Advance(time.Second)

	if _, ok := b.Allow(); !ok {
		t.Fatal("first caller after cooldown should probe")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half-open", b.State())
	}
	if _, ok := b.Allow(); ok {
		t.Error("second caller admitted during probe")
	}
	b.Release()
	if _, ok := b.Allow(); !ok {
		t.Error("caller rejected after probe released")
	}
}

func TestNonTransportErrorsDoNotTripBreaker(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()
	cfg.CircuitBreakerThreshold = 1
	q := New("test", cfg)
	for i := 0; i < 3; i++ {
		_ = q.Do(context.Background(), "404", func(context.Context) error { return errors.New("not found") })
	}
	if got := q.Stats().Circuit; got != StateClosed {
		t.Errorf("circuit = %s, want closed", got)
	}
}
