package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestLimiterSetBurst(t *testing.T) {
	// 2 events per second with burst 2: the third immediate call is denied.
	ls := newLimiterSet(rate.Limit(2), 2, time.Minute)
	if !ls.allow("key") {
		t.Fatal("first call should pass")
	}
	if !ls.allow("key") {
		t.Fatal("second call should pass")
	}
	if ls.allow("key") {
		t.Fatal("third call should be rate limited")
	}
}

func TestLimiterSetIndependentKeys(t *testing.T) {
	ls := newLimiterSet(rate.Limit(1), 1, time.Minute)
	if !ls.allow("a") {
		t.Fatal("first key should pass")
	}
	if !ls.allow("b") {
		t.Fatal("second key should have its own bucket")
	}
	if ls.allow("a") {
		t.Fatal("first key should be exhausted")
	}
}

func TestLimiterSetEvictsIdleBuckets(t *testing.T) {
	ls := newLimiterSet(rate.Limit(1), 1, 10*time.Millisecond)
	if !ls.allow("a") {
		t.Fatal("first call should pass")
	}
	time.Sleep(30 * time.Millisecond)
	// Touching another key sweeps the idle bucket; "a" starts fresh.
	ls.allow("b")
	if !ls.allow("a") {
		t.Fatal("evicted key should get a fresh bucket")
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:4321"
	if ip := getClientIP(r); ip != "10.0.0.1" {
		t.Fatalf("remote addr: got %q", ip)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := getClientIP(r); ip != "203.0.113.7" {
		t.Fatalf("xff: got %q", ip)
	}
}
