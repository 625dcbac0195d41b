package middleware

import (
	"testing"
	"time"

	"github.com/use-agent/duel/config"
)

func TestCallerBuckets_Reserve(t *testing.T) {
	cb := newCallerBuckets(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range 2 {
		if d := cb.reserve("a", now); d != 0 {
			t.Fatalf("request %d delayed %v", i, d)
		}
	}
	d := cb.reserve("a", now)
	if d <= 0 || d > time.Second {
		t.Errorf("third request delay = %v, want (0, 1s]", d)
	}
	// The rejected request must not consume the token refilled a second later.
	if d := cb.reserve("a", now.Add(time.Second)); d != 0 {
		t.Errorf("after refill delay = %v", d)
	}
	if d := cb.reserve("b", now); d != 0 {
		t.Errorf("other caller delayed %v", d)
	}
}

func TestCallerBuckets_Sweep(t *testing.T) {
	cb := newCallerBuckets(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.reserve("old", now.Add(-2*time.Hour))
	cb.reserve("fresh", now)

	cb.sweep(now.Add(-idleLimiterTTL))

	if _, ok := cb.buckets["old"]; ok {
		t.Error("idle caller kept")
	}
	if _, ok := cb.buckets["fresh"]; !ok {
		t.Error("active caller dropped")
	}
}
