// Package interval implements the adaptive abort-predicate sampler of
// spec.md §4.6: an expensive predicate (time-exceeded, cannot-change) is
// wrapped behind a cheap call counter, consulted only every k calls; k is
// re-tuned so the expensive path runs roughly every TimeInterval seconds.
// In deterministic mode k is fixed, matching spec.md §5's "deterministic
// mode disables time-based dynamics in the interval checker".
//
// Grounded on IlikeChooros-go-mcts/pkg/mcts/limiter.go's Limiter (the
// cheap/expensive split between Ok()'s mask check and the underlying
// _Timer) and on teacher's (github.com/alphabeth) mcts/search.go doSearch,
// which performs a cheap atomic increment-and-compare every iteration and
// only occasionally (there: never, since the teacher has no cannot-change
// test) consults anything more expensive.
package interval

import (
	"time"

	rng "github.com/leesper/go_rng"
)

// Source is a monotonic time source, matching spec.md §4.2's
// `time_source` parameter so tests can supply a fake clock.
type Source func() time.Time

// Checker wraps an expensive predicate so it is evaluated at most roughly
// once every TimeInterval, adapting the cheap-call count k between
// expensive evaluations based on observed call rate.
type Checker struct {
	expensive    func() bool
	now          Source
	timeInterval time.Duration
	deterministic bool
	fixedK       int64

	calls      int64
	k          int64
	lastCheck  time.Time
	lastResult bool

	poisson *rng.PoissonGenerator
}

// New builds a Checker around expensive, consulting now for wall-clock
// timing. timeInterval is the target spacing between expensive
// evaluations. If deterministic is true, k is held fixed at fixedK and the
// time source is never consulted to re-tune it (though the expensive
// predicate itself may still use time internally; this checker simply
// stops adapting its own sampling rate).
func New(expensive func() bool, now Source, timeInterval time.Duration, deterministic bool, fixedK int64) *Checker {
	if fixedK <= 0 {
		fixedK = 1
	}
	return &Checker{
		expensive:     expensive,
		now:           now,
		timeInterval:  timeInterval,
		deterministic: deterministic,
		fixedK:        fixedK,
		k:             fixedK,
		lastCheck:     now(),
		poisson:       rng.NewPoissonGenerator(fixedK),
	}
}

// Check increments the cheap call counter and, every k calls, evaluates the
// expensive predicate and re-tunes k. Returns the most recent result of the
// expensive predicate (false until the first evaluation).
func (c *Checker) Check() bool {
	c.calls++
	if c.calls < c.k {
		return c.lastResult
	}
	c.calls = 0

	c.lastResult = c.expensive()

	if c.deterministic {
		c.k = c.fixedK
		return c.lastResult
	}

	now := c.now()
	elapsed := now.Sub(c.lastCheck)
	c.lastCheck = now
	c.k = c.retune(c.k, elapsed, c.timeInterval)
	return c.lastResult
}

// retune adjusts k so that, at the observed call rate, the expensive
// predicate would run roughly once per target interval. The ideal next k is
// clamped to a geometric band around the current k to avoid oscillation,
// then jittered by sampling a Poisson distribution centered on that ideal:
// a hard "every k calls" cadence is easy to starve by an adversarial caller
// pattern that always lands just inside the window, so the actual resample
// period is randomized around the target instead of fixed to it.
func (c *Checker) retune(k int64, elapsed, target time.Duration) int64 {
	if elapsed <= 0 || target <= 0 {
		return k
	}
	ratio := float64(target) / float64(elapsed)
	ideal := float64(k) * ratio
	switch {
	case ideal < 1:
		ideal = 1
	case ideal > float64(k*8):
		ideal = float64(k * 8)
	case ideal < float64(k/8) && k/8 > 0:
		ideal = float64(k / 8)
	}
	next := c.poisson.Poisson(ideal)
	if next < 1 {
		next = 1
	}
	return next
}
