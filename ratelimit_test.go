package main

import (
	"context"
	"testing"
	"time"
)

func TestCreateLimiter_FixedWindow(t *testing.T) {
	limiter := NewCreateLimiter(NewMemStore(), 3, 100*time.Millisecond)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		ok, _, err := limiter.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("attempt %d should be allowed", i)
		}
	}

	ok, retryAfter, err := limiter.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("fourth attempt in the window should be rejected")
	}
	if retryAfter <= 0 {
		t.Errorf("retryAfter = %v, want positive", retryAfter)
	}

	// A different source has its own window.
	if ok, _, _ := limiter.Allow(ctx, "5.6.7.8"); !ok {
		t.Error("different source should be allowed")
	}

	time.Sleep(120 * time.Millisecond)

	if ok, _, _ := limiter.Allow(ctx, "1.2.3.4"); !ok {
		t.Error("attempt after the window elapsed should start a fresh window")
	}
}

func TestCreateLimiter_AnonymousBucket(t *testing.T) {
	limiter := NewCreateLimiter(NewMemStore(), 3, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if ok, _, _ := limiter.Allow(ctx, ""); !ok {
			t.Fatalf("anonymous attempt %d should be allowed", i)
		}
	}
	if ok, _, _ := limiter.Allow(ctx, ""); ok {
		t.Error("anonymous callers share one bucket; fourth attempt should be rejected")
	}
}

func TestHandshakeLimiter_Allow(t *testing.T) {
	hl := NewHandshakeLimiter(10)

	if !hl.Allow("1.2.3.4") {
		t.Error("first request should be allowed")
	}
	if !hl.Allow("5.6.7.8") {
		t.Error("different IP should be allowed")
	}
}

func TestHandshakeLimiter_Burst(t *testing.T) {
	hl := NewHandshakeLimiter(5)

	ip := "10.0.0.1"
	allowed := 0
	for i := 0; i < 20; i++ {
		if hl.Allow(ip) {
			allowed++
		}
	}

	if allowed < 5 {
		t.Errorf("expected at least 5 allowed in burst, got %d", allowed)
	}
	if allowed >= 20 {
		t.Error("handshake limiter should have blocked some requests")
	}
}
