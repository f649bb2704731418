package worker

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "10.0.0.1"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different client should also work
	if err := limiter.Wait(ctx, "10.0.0.2"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	if limiter.Keys() != 2 {
		t.Errorf("expected 2 tracked keys, got %d", limiter.Keys())
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	// 1 rps, burst 1
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "10.0.0.1"); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst consumed
	if limiter.Allow("10.0.0.1") {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !limiter.Allow("10.0.0.2") {
		t.Errorf("expected allow for other client")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("batch") {
			t.Fatalf("request %d rejected by unlimited limiter", i)
		}
	}
}

func TestLimiter_EvictsIdleKeys(t *testing.T) {
	limiter := newLimiter(0, 1, 50*time.Millisecond)

	for i := 0; i < 100; i++ {
		limiter.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	if limiter.Keys() != 100 {
		t.Fatalf("expected 100 tracked keys, got %d", limiter.Keys())
	}

	time.Sleep(200 * time.Millisecond)
	if limiter.Keys() != 0 {
		t.Errorf("expected idle keys to be evicted, got %d", limiter.Keys())
	}
}

func TestLimiter_EvictedKeyKeepsLimit(t *testing.T) {
	// idle TTL is raised to the refill time, so a drained bucket is not reset early
	limiter := newLimiter(1, 1, time.Millisecond)
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("first request should pass")
	}
	time.Sleep(20 * time.Millisecond)
	if limiter.Allow("10.0.0.1") {
		t.Error("drained bucket was reset by eviction")
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	limiter.Allow("batch")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "batch"); err == nil {
		t.Error("expected error when context expires before a token is available")
	}
}
