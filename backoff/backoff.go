// Package backoff provides the extra delay a tracker waits after
// consecutive transient failures, on top of its base poll interval.
// All strategies are stateless and safe for concurrent use.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the extra delay after a run of transient failures.
type Strategy interface {
	// Delay returns the extra wait after the n-th consecutive failure
	// (1-indexed). Delay(0) is always zero.
	Delay(failures int) time.Duration
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant waits the same extra delay after every failure.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(failures int) time.Duration {
	if failures <= 0 || c.Interval < 0 {
		return 0
	}
	return c.Interval
}

// ──────────────────────────────────────────────────
// Linear
// ──────────────────────────────────────────────────

// Linear grows the extra delay by Step per failure.
// Delay = min(Step * failures, Max).
type Linear struct {
	Step time.Duration
	Max  time.Duration
}

// NewLinear creates a linear backoff strategy. A zero maxDelay means
// uncapped.
func NewLinear(step, maxDelay time.Duration) *Linear {
	return &Linear{Step: step, Max: maxDelay}
}

// Delay returns Step * failures, capped at Max.
func (l *Linear) Delay(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	return capped(float64(l.Step)*float64(failures), l.Max)
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the extra delay each failure.
// Delay = min(Initial * 2^(failures-1), Max).
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * 2^(failures-1), capped at Max.
func (e *Exponential) Delay(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	return capped(float64(e.Initial)*math.Pow(2, float64(failures-1)), e.Max)
}

// ──────────────────────────────────────────────────
// ExponentialWithJitter (full jitter)
// ──────────────────────────────────────────────────

// ExponentialWithJitter applies full jitter to an exponential base.
// Delay = random value in [0, min(Initial * 2^(failures-1), Max)].
// Useful when many trackers hit the same failing API at once.
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponentialWithJitter creates an exponential backoff with full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

// Delay returns a random duration in [0, min(Initial * 2^(failures-1), Max)].
func (e *ExponentialWithJitter) Delay(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	base := capped(float64(e.Initial)*math.Pow(2, float64(failures-1)), e.Max)
	return time.Duration(rand.Float64() * float64(base)) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// capped converts a delay computed in float64 to a Duration. The cap is
// applied before the conversion so large failure counts saturate instead
// of overflowing; the result is never negative.
func capped(d float64, maxDelay time.Duration) time.Duration {
	switch {
	case d <= 0 || math.IsNaN(d):
		return 0
	case maxDelay > 0 && d > float64(maxDelay):
		return maxDelay
	case d >= math.MaxInt64:
		return math.MaxInt64
	}
	return time.Duration(d)
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the tracker's default: one extra poll interval
// per consecutive failure, capped at maxDelay. With it the n-th retry
// happens interval + n*interval after the failed attempt.
func DefaultStrategy(interval, maxDelay time.Duration) Strategy {
	return NewLinear(interval, maxDelay)
}
