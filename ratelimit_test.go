package main

import (
	"testing"
	"time"
)

func testRegistry() []ProviderConfig {
	return []ProviderConfig{
		{Name: "fast", Models: []string{"m1"}, APIKey: "k", Headers: bearerHeaders, RequestsPerMinute: 60},
	}
}

func newTestLimiter() (*RateLimiter, *[]time.Duration, *time.Time) {
	rl := NewRateLimiter(testRegistry(), 15*time.Second)
	now := time.Now()
	var sleeps []time.Duration
	rl.now = func() time.Time { return now }
	// The fake sleep advances the fake clock so reservations behave like
	// real elapsed time.
	rl.sleep = func(d time.Duration) {
		sleeps = append(sleeps, d)
		now = now.Add(d)
	}
	return rl, &sleeps, &now
}

func TestAwaitTurnPacesBackToBackCalls(t *testing.T) {
	rl, sleeps, _ := newTestLimiter()

	rl.AwaitTurn("fast")
	if len(*sleeps) != 0 {
		t.Fatalf("first call should not wait, slept %v", *sleeps)
	}

	rl.AwaitTurn("fast")
	if len(*sleeps) != 1 {
		t.Fatalf("second immediate call should wait once, slept %v", *sleeps)
	}
	// 60 rpm -> 1s base interval + safety margin.
	if (*sleeps)[0] < time.Second || (*sleeps)[0] > 2*time.Second {
		t.Fatalf("unexpected pacing wait %s", (*sleeps)[0])
	}
}

func TestAwaitTurnAfterIntervalElapsed(t *testing.T) {
	rl, sleeps, now := newTestLimiter()

	rl.AwaitTurn("fast")
	*now = now.Add(5 * time.Second)
	rl.AwaitTurn("fast")
	if len(*sleeps) != 0 {
		t.Fatalf("call after interval elapsed should not wait, slept %v", *sleeps)
	}
}

func TestCooldownPacingAfterQuotaErrors(t *testing.T) {
	rl, sleeps, _ := newTestLimiter()

	rl.AwaitTurn("fast")
	rl.RecordQuotaError("fast")

	rl.AwaitTurn("fast")
	rl.AwaitTurn("fast")
	if len(*sleeps) < 2 {
		t.Fatalf("expected cooldown waits, slept %v", *sleeps)
	}
	last := (*sleeps)[len(*sleeps)-1]
	// While errors persist, spacing is the cooldown, and never more:
	// waits stay bounded by one cooldown interval.
	if last < 10*time.Second || last > 15*time.Second {
		t.Fatalf("cooldown wait = %s, want ~15s", last)
	}

	rl.RecordSuccess("fast")
	if rl.ConsecutiveErrors("fast") != 0 {
		t.Fatal("success must reset the consecutive-error counter")
	}
}

func TestAwaitTurnUnknownProvider(t *testing.T) {
	rl, sleeps, _ := newTestLimiter()
	// Unknown providers get a default interval instead of a panic.
	rl.AwaitTurn("surprise")
	rl.AwaitTurn("surprise")
	if len(*sleeps) != 1 {
		t.Fatalf("expected one default-interval wait, got %v", *sleeps)
	}
}
