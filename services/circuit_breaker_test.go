package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failingOp(ctx context.Context) error { return errBoom }

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	b := NewCircuitBreaker("ocr", BreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Execute(ctx, failingOp); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: expected operation error, got %v", i, err)
		}
	}

	if got := b.State(); got != BreakerOpen {
		t.Fatalf("expected state %s after threshold, got %s", BreakerOpen, got)
	}

	// Next call must fail fast without invoking the operation
	invoked := false
	err := b.Execute(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if invoked {
		t.Fatal("operation was invoked while breaker was open")
	}
}

func TestCircuitBreakerHalfOpenProbe(t *testing.T) {
	b := NewCircuitBreaker("ocr", BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})
	ctx := context.Background()

	if err := b.Execute(ctx, failingOp); !errors.Is(err, errBoom) {
		t.Fatalf("expected operation error, got %v", err)
	}
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("expected %s, got %s", BreakerOpen, got)
	}

	time.Sleep(20 * time.Millisecond)

	if got := b.State(); got != BreakerHalfOpen {
		t.Fatalf("expected %s after recovery timeout, got %s", BreakerHalfOpen, got)
	}

	// Probe succeeds: breaker closes and failure count resets
	if err := b.Execute(ctx, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("expected %s after successful probe, got %s", BreakerClosed, got)
	}
	if got := b.FailureCount(); got != 0 {
		t.Fatalf("expected failure count 0 after success, got %d", got)
	}
}

func TestCircuitBreakerProbeFailureReopens(t *testing.T) {
	b := NewCircuitBreaker("detection", BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 5 * time.Millisecond})
	ctx := context.Background()

	_ = b.Execute(ctx, failingOp)
	time.Sleep(10 * time.Millisecond)

	if err := b.Execute(ctx, failingOp); !errors.Is(err, errBoom) {
		t.Fatalf("expected probe to run and fail, got %v", err)
	}
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("expected %s after failed probe, got %s", BreakerOpen, got)
	}
}

func TestCircuitBreakerAdmitsSingleProbe(t *testing.T) {
	b := NewCircuitBreaker("ocr", BreakerConfig{FailureThreshold: 1, RecoveryTimeout: 5 * time.Millisecond})
	ctx := context.Background()

	_ = b.Execute(ctx, failingOp)
	time.Sleep(10 * time.Millisecond)

	// First caller after the cooldown is the probe; concurrent callers keep
	// failing fast until its outcome is recorded
	if !b.allow() {
		t.Fatal("expected probe admitted after recovery timeout")
	}
	if b.allow() {
		t.Fatal("expected concurrent caller rejected while probe in flight")
	}

	invoked := false
	err := b.Execute(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen for the concurrent caller, got %v", err)
	}
	if invoked {
		t.Fatal("operation was invoked alongside an in-flight probe")
	}

	b.recordSuccess()
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("expected %s after probe success, got %s", BreakerClosed, got)
	}
	if err := b.Execute(ctx, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("closed breaker must admit calls: %v", err)
	}
}

func TestCircuitBreakerSuccessResetsCounter(t *testing.T) {
	b := NewCircuitBreaker("inference", DefaultBreakerConfig())
	ctx := context.Background()

	_ = b.Execute(ctx, failingOp)
	_ = b.Execute(ctx, failingOp)
	if err := b.Execute(ctx, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := b.FailureCount(); got != 0 {
		t.Fatalf("expected reset counter, got %d", got)
	}
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("expected %s, got %s", BreakerClosed, got)
	}

	// Two more failures should still be below the default threshold of 3
	_ = b.Execute(ctx, failingOp)
	_ = b.Execute(ctx, failingOp)
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("expected %s with 2/3 failures, got %s", BreakerClosed, got)
	}
}

func TestBreakerSetReturnsSameInstancePerService(t *testing.T) {
	set := NewBreakerSet(DefaultBreakerConfig())

	if set.Get("ocr") != set.Get("ocr") {
		t.Fatal("expected the same breaker instance for the same service name")
	}
	if set.Get("ocr") == set.Get("detection") {
		t.Fatal("expected distinct breakers for distinct service names")
	}
}
