package errors

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy defines the retry behavior for a specific error tier.
type RetryPolicy struct {
	// MaxAttempts is the number of retries after the first call (0 means none).
	MaxAttempts int `yaml:"max_attempts"`

	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`

	// Multiplier is the backoff multiplier (default: 2.0).
	Multiplier float64 `yaml:"multiplier"`

	// UseRetryAfter honors a provider supplied Retry-After duration.
	UseRetryAfter bool `yaml:"use_retry_after"`

	// JitterPercent is the jitter percentage (0.1 for 10%).
	JitterPercent float64 `yaml:"jitter_percent"`
}

// DefaultRetryPolicies returns the retry policies used for model calls.
// Dataset generation is a batch job, so delays are short and attempts few;
// a failed call only costs one generated entry.
func DefaultRetryPolicies() map[ErrorTier]*RetryPolicy {
	return map[ErrorTier]*RetryPolicy{
		TierTransient: {
			MaxAttempts:   3,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			Multiplier:    2.0,
			JitterPercent: 0.1,
		},
		TierExternalRateLimit: {
			MaxAttempts:   5,
			InitialDelay:  time.Second,
			MaxDelay:      30 * time.Second,
			Multiplier:    2.0,
			UseRetryAfter: true,
			JitterPercent: 0.1,
		},
		TierExternalDegrading: {
			MaxAttempts:   2,
			InitialDelay:  2 * time.Second,
			MaxDelay:      10 * time.Second,
			Multiplier:    2.0,
			JitterPercent: 0.1,
		},
		TierPermanent:   {},
		TierUserFixable: {},
	}
}

// RetryExecutor executes operations with retry logic based on error tiers.
type RetryExecutor struct {
	policies map[ErrorTier]*RetryPolicy
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRetryExecutor creates a RetryExecutor. Nil policies select the defaults.
func NewRetryExecutor(policies map[ErrorTier]*RetryPolicy) *RetryExecutor {
	if policies == nil {
		policies = DefaultRetryPolicies()
	}
	return &RetryExecutor{policies: policies, sleep: waitBeforeRetry}
}

// Policy returns the policy for the given tier or a no-retry policy.
func (e *RetryExecutor) Policy(tier ErrorTier) *RetryPolicy {
	if policy, ok := e.policies[tier]; ok && policy != nil {
		return policy
	}
	return &RetryPolicy{}
}

// Do runs fn, classifying every failure by tier and retrying according to
// that tier's policy. Attempts are counted per tier, so a rate limit followed
// by a 5xx does not exhaust the degrading budget early.
func (e *RetryExecutor) Do(ctx context.Context, fn func() error) error {
	attempts := make(map[ErrorTier]int)
	for {
		err := fn()
		if err == nil {
			return nil
		}
		tier := GetTier(err)
		policy := e.Policy(tier)
		n := attempts[tier]
		if n >= policy.MaxAttempts {
			return err
		}
		attempts[tier] = n + 1

		if werr := e.sleep(ctx, e.computeDelay(err, n, policy)); werr != nil {
			return err
		}
	}
}

func (e *RetryExecutor) computeDelay(err error, attempt int, policy *RetryPolicy) time.Duration {
	if policy.UseRetryAfter {
		var te *TieredError
		if errors.As(err, &te) && te.RetryAfter > 0 {
			return te.RetryAfter
		}
	}
	return AddJitter(CalculateDelay(attempt, policy), policy.JitterPercent)
}

func waitBeforeRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CalculateDelay computes initial * multiplier^attempt, capped at MaxDelay.
func CalculateDelay(attempt int, policy *RetryPolicy) time.Duration {
	if policy == nil {
		return 0
	}
	multiplier := policy.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	delay := time.Duration(float64(policy.InitialDelay) * math.Pow(multiplier, float64(attempt)))
	if delay > policy.MaxDelay {
		return policy.MaxDelay
	}
	return delay
}

// AddJitter applies ±jitterPercent of random jitter, never going below 1ms.
func AddJitter(delay time.Duration, jitterPercent float64) time.Duration {
	if jitterPercent <= 0 {
		return delay
	}
	jitterRange := float64(delay) * jitterPercent
	offset := (rand.Float64()*2 - 1) * jitterRange
	jittered := time.Duration(float64(delay) + offset)
	if jittered < time.Millisecond {
		return time.Millisecond
	}
	return jittered
}
