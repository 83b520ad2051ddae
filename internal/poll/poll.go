// Package poll implements the bounded retry discipline for actions
// whose success condition is observed asynchronously: poll, back off,
// stop on success, budget exhaustion, or cancellation.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrBudgetExhausted is returned by Do when the retry budget ran out
// before the success predicate held. The last observation is returned
// alongside it.
var ErrBudgetExhausted = errors.New("retry budget exhausted")

// Observation is the result of a single observe call.
type Observation struct {
	// Done reports whether the success predicate holds.
	Done bool
	// Attempts is the number of observe calls made, filled in by Do.
	Attempts int
	// Detail is the last observed state, kept for failure diagnostics.
	Detail string
}

// Func observes current external state and decides whether the
// expected effect has occurred. A non-nil error aborts polling
// immediately; it marks a terminal failure, not a pending condition.
type Func func(ctx context.Context) (Observation, error)

// Policy bounds a polling loop by attempt count and/or wall time.
// The interval grows geometrically by BackoffFactor up to MaxInterval.
type Policy struct {
	// MaxAttempts caps the number of observe calls. Zero means no
	// attempt cap; at least one of MaxAttempts and MaxWallTime must be
	// set.
	MaxAttempts int
	// MaxWallTime caps the total time spent polling.
	MaxWallTime time.Duration
	// Interval is the initial delay between observe calls.
	Interval time.Duration
	// MaxInterval caps the grown interval. Zero means no cap.
	MaxInterval time.Duration
	// BackoffFactor multiplies the interval after each attempt.
	// Values below 1 are treated as 1 (constant interval).
	BackoffFactor float64
}

// Default is the policy used when the configuration does not override
// it.
var Default = Policy{
	MaxAttempts:   30,
	Interval:      time.Second,
	MaxInterval:   10 * time.Second,
	BackoffFactor: 1.5,
}

// Do runs fn until it reports done, the budget is exhausted, or ctx is
// cancelled. Cancellation is observed within one poll interval. The
// returned observation is always the last one made, so callers can
// attach it to failure diagnostics.
func (p Policy) Do(ctx context.Context, fn Func) (Observation, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = Default.Interval
	}
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}

	var deadline time.Time
	if p.MaxWallTime > 0 {
		deadline = time.Now().Add(p.MaxWallTime)
	}

	var last Observation
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			last.Attempts = attempt - 1
			return last, err
		}

		obs, err := fn(ctx)
		obs.Attempts = attempt
		last = obs
		if err != nil {
			return last, err
		}
		if obs.Done {
			return last, nil
		}

		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return last, ErrBudgetExhausted
		}
		if !deadline.IsZero() && !time.Now().Add(interval).Before(deadline) {
			return last, ErrBudgetExhausted
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, ctx.Err()
		case <-timer.C:
		}

		interval = time.Duration(float64(interval) * factor)
		if p.MaxInterval > 0 && interval > p.MaxInterval {
			interval = p.MaxInterval
		}
	}
}
