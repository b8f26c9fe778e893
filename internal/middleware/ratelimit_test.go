package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		if !rl.allow("k") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("k") {
		t.Fatal("4th request inside the window should be rejected")
	}
	if !rl.allow("other") {
		t.Fatal("different key must have its own budget")
	}

	time.Sleep(60 * time.Millisecond)
	if !rl.allow("k") {
		t.Fatal("request after the window expired should be allowed")
	}
}
