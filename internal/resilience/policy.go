// Package resilience retries transient encoder failures and stops calling the encoder
// while it keeps failing.
package resilience

import (
	"math"
	"time"
)

// Policy controls retry backoff and the encoder's circuit breaker.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	Breaker bool
	// TripAfter is the number of calls the breaker must see before it may open.
	TripAfter uint32
	// TripRatio is the failure ratio at or above which the breaker opens.
	TripRatio float64
	// Cooldown is how long the breaker stays open before letting a trial call through.
	Cooldown time.Duration
}

// DefaultPolicy returns three attempts with 100-400ms backoff and an enabled breaker.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     400 * time.Millisecond,
		Multiplier:     2,
		Breaker:        true,
		TripAfter:      10,
		TripRatio:      0.5,
		Cooldown:       30 * time.Second,
	}
}

// withDefaults fills zero or out-of-range fields from DefaultPolicy. Breaker is kept as given.
func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = max(def.MaxBackoff, p.InitialBackoff)
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	if p.TripAfter == 0 {
		p.TripAfter = def.TripAfter
	}
	if p.TripRatio <= 0 || p.TripRatio > 1 {
		p.TripRatio = def.TripRatio
	}
	if p.Cooldown <= 0 {
		p.Cooldown = def.Cooldown
	}
	return p
}

// delay is the wait after the given failed attempt (1-based), capped at MaxBackoff.
func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(attempt-1))
	if d >= float64(p.MaxBackoff) {
		return p.MaxBackoff
	}
	return time.Duration(d)
}
