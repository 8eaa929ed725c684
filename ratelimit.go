package main

import (
	"log"
	"sync"
	"time"
)

type pacingState struct {
	nextAllowed       time.Time
	consecutiveErrors int
}

// RateLimiter paces outbound calls per provider. The base interval is
// derived from the provider's advertised requests-per-minute limit with a
// safety margin; while a provider has consecutive quota errors the interval
// is replaced by the longer cooldown. Every wait is bounded by one cooldown
// interval.
type RateLimiter struct {
	mu       sync.Mutex
	states   map[string]*pacingState
	interval map[string]time.Duration
	cooldown time.Duration
	now      func() time.Time
	sleep    func(time.Duration)
}

func NewRateLimiter(registry []ProviderConfig, cooldown time.Duration) *RateLimiter {
	rl := &RateLimiter{
		states:   make(map[string]*pacingState),
		interval: make(map[string]time.Duration),
		cooldown: cooldown,
		now:      time.Now,
		sleep:    time.Sleep,
	}
	for _, p := range registry {
		rpm := p.RequestsPerMinute
		if rpm < 1 {
			rpm = 30
		}
		// Round up and add margin: free tiers count requests loosely.
		iv := time.Minute/time.Duration(rpm) + 250*time.Millisecond
		rl.interval[p.Name] = iv
		rl.states[p.Name] = &pacingState{}
	}
	return rl
}

// AwaitTurn blocks until the next request to provider may be issued and
// reserves that slot. Concurrent callers for the same provider serialize
// here; each waits at most one interval behind the previous reservation.
func (rl *RateLimiter) AwaitTurn(provider string) {
	rl.mu.Lock()
	st, ok := rl.states[provider]
	if !ok {
		st = &pacingState{}
		rl.states[provider] = st
	}
	iv := rl.interval[provider]
	if iv == 0 {
		iv = 2 * time.Second
	}
	if st.consecutiveErrors > 0 {
		iv = rl.cooldown
	}

	now := rl.now()
	wait := st.nextAllowed.Sub(now)
	if wait < 0 {
		wait = 0
	}
	start := now.Add(wait)
	st.nextAllowed = start.Add(iv)
	errs := st.consecutiveErrors
	rl.mu.Unlock()

	if wait > 0 {
		log.Printf("ratelimit provider=%s wait=%s errors=%d", provider, wait.Round(time.Millisecond), errs)
		rl.sleep(wait)
	}
}

// RecordSuccess resets the consecutive-error counter for provider.
func (rl *RateLimiter) RecordSuccess(provider string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if st, ok := rl.states[provider]; ok {
		st.consecutiveErrors = 0
	}
}

// RecordQuotaError bumps the consecutive-error counter, switching the
// provider into cooldown pacing until the next success.
func (rl *RateLimiter) RecordQuotaError(provider string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if st, ok := rl.states[provider]; ok {
		st.consecutiveErrors++
	}
}

func (rl *RateLimiter) ConsecutiveErrors(provider string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if st, ok := rl.states[provider]; ok {
		return st.consecutiveErrors
	}
	return 0
}
