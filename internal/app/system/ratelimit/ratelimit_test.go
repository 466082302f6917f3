package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	l := New(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("fourth attempt should be blocked")
	}
	if got := l.Remaining("k"); got != 0 {
		t.Errorf("Remaining: got %d, want 0", got)
	}
	if !l.Allow("other") {
		t.Error("keys must be independent")
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := New(1, time.Minute)
	l.Allow("k")
	l.Reset("k")
	if got := l.Remaining("k"); got != 1 {
		t.Errorf("Remaining after reset: got %d, want 1", got)
	}
	if !l.Allow("k") {
		t.Error("expected allow after reset")
	}
}

func TestLimiter_WindowExpires(t *testing.T) {
	l := New(1, 20*time.Millisecond)
	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("second attempt in window should be blocked")
	}
	time.Sleep(40 * time.Millisecond)
	if !l.Allow("k") {
		t.Error("expected a new window after expiry")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if got := ClientIP(req); got != "10.0.0.1" {
		t.Errorf("RemoteAddr: got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if got := ClientIP(req); got != "1.2.3.4" {
		t.Errorf("X-Forwarded-For: got %q", got)
	}
}

func TestLoginLimiter_PerUsername(t *testing.T) {
	ll := NewLoginLimiterWithConfig(100, time.Minute, 2, time.Minute)
	req := httptest.NewRequest("POST", "/login", nil)

	for i := 0; i < 2; i++ {
		if ok, _ := ll.Check(req, "Mario"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	ok, msg := ll.Check(req, " mario ")
	if ok || msg != MsgTooManyForAccount {
		t.Errorf("expected account throttle, got ok=%v msg=%q", ok, msg)
	}

	ll.ResetUsername("MARIO")
	if ok, _ := ll.Check(req, "mario"); !ok {
		t.Error("expected allow after reset")
	}
}

func TestLoginLimiter_PerIP(t *testing.T) {
	ll := NewLoginLimiterWithConfig(1, time.Minute, 100, time.Minute)
	req := httptest.NewRequest("POST", "/login", nil)
	ll.Check(req, "a")
	if ok, msg := ll.Check(req, "b"); ok || msg != MsgTooManyFromIP {
		t.Errorf("expected IP throttle, got ok=%v msg=%q", ok, msg)
	}
}
