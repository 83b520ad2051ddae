package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts:   maxAttempts,
		Interval:      time.Millisecond,
		BackoffFactor: 1,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	const failFirst = 3
	calls := 0
	obs, err := fastPolicy(10).Do(context.Background(), func(context.Context) (Observation, error) {
		calls++
		return Observation{Done: calls > failFirst}, nil
	})
	require.NoError(t, err)
	require.True(t, obs.Done)
	require.Equal(t, failFirst+1, obs.Attempts)
}

func TestDoFailsAtAttemptBudget(t *testing.T) {
	const maxAttempts = 5
	calls := 0
	obs, err := fastPolicy(maxAttempts).Do(context.Background(), func(context.Context) (Observation, error) {
		calls++
		return Observation{Detail: "still pending"}, nil
	})
	require.ErrorIs(t, err, ErrBudgetExhausted)
	require.Equal(t, maxAttempts, calls)
	require.Equal(t, maxAttempts, obs.Attempts)
	require.Equal(t, "still pending", obs.Detail)
}

func TestDoSucceedsOnlyBelowBudget(t *testing.T) {
	const maxAttempts = 4
	for _, failures := range []int{maxAttempts - 1, maxAttempts} {
		calls := 0
		_, err := fastPolicy(maxAttempts).Do(context.Background(), func(context.Context) (Observation, error) {
			calls++
			return Observation{Done: calls > failures}, nil
		})
		if failures < maxAttempts {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, ErrBudgetExhausted)
		}
	}
}

func TestDoWallTimeBudget(t *testing.T) {
	policy := Policy{
		MaxWallTime:   20 * time.Millisecond,
		Interval:      5 * time.Millisecond,
		BackoffFactor: 1,
	}
	start := time.Now()
	_, err := policy.Do(context.Background(), func(context.Context) (Observation, error) {
		return Observation{}, nil
	})
	require.ErrorIs(t, err, ErrBudgetExhausted)
	require.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestDoObserveErrorAbortsImmediately(t *testing.T) {
	boom := errors.New("node unreachable")
	calls := 0
	_, err := fastPolicy(10).Do(context.Background(), func(context.Context) (Observation, error) {
		calls++
		return Observation{}, boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestDoCancelledMidPoll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{
		MaxAttempts:   1000,
		Interval:      50 * time.Millisecond,
		BackoffFactor: 1,
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := policy.Do(ctx, func(context.Context) (Observation, error) {
		return Observation{}, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	// Cancellation must be observed within one poll interval.
	require.Less(t, time.Since(start), policy.Interval+30*time.Millisecond)
}

func TestDoBackoffCapped(t *testing.T) {
	policy := Policy{
		MaxAttempts:   4,
		Interval:      time.Millisecond,
		MaxInterval:   2 * time.Millisecond,
		BackoffFactor: 10,
	}
	start := time.Now()
	_, err := policy.Do(context.Background(), func(context.Context) (Observation, error) {
		return Observation{}, nil
	})
	require.ErrorIs(t, err, ErrBudgetExhausted)
	// Three sleeps, each capped at 2ms.
	require.Less(t, time.Since(start), 100*time.Millisecond)
}
