package http

import (
	"testing"
	"time"
)

func TestRateLimiter_Window(t *testing.T) {
	rl := newRateLimiter(3)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Fatal("fourth request should be limited")
	}
	if !rl.allow("5.6.7.8") {
		t.Fatal("other clients have their own budget")
	}

	now = now.Add(20 * time.Second)
	if got := rl.retryAfter("1.2.3.4"); got != 40 {
		t.Errorf("retryAfter = %d, want 40", got)
	}

	// Continuous traffic must not extend the window.
	now = now.Add(40 * time.Second)
	if !rl.allow("1.2.3.4") {
		t.Fatal("window should have reset")
	}
}

func TestRateLimiter_DefaultBudget(t *testing.T) {
	rl := newRateLimiter(0)
	if rl.perMinute != 60 {
		t.Errorf("perMinute = %d, want 60", rl.perMinute)
	}
}

func TestRateLimiter_CleanupStaleEntries(t *testing.T) {
	rl := newRateLimiter(10)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.allow("old")
	now = now.Add(11 * time.Minute)
	rl.allow("fresh")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if rl.activeClients() != 1 {
		t.Errorf("activeClients = %d, want 1", rl.activeClients())
	}
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := newRateLimiter(10)
	rl.start()
	rl.stop()
	rl.stop()
}
