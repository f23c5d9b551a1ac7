package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"bifrost/internal/constants"
	bridgeerrors "bifrost/pkg/errors"
)

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     constants.DefaultRetryMaxAttempts,
		InitialInterval: constants.DefaultRetryInitialInterval,
		MaxInterval:     constants.DefaultRetryMaxInterval,
		Multiplier:      constants.DefaultRetryMultiplier,
	}
}

func newBackOff(ctx context.Context, policy Policy) backoff.BackOff {
	var b backoff.BackOff
	if policy.MaxElapsedTime > 0 {
		b = ExponentialBackoffWithMaxElapsed(
			policy.InitialInterval,
			policy.MaxInterval,
			policy.MaxElapsedTime,
			policy.Multiplier,
		)
	} else {
		b = ExponentialBackoff(
			policy.InitialInterval,
			policy.MaxInterval,
			policy.Multiplier,
		)
	}

	b = backoff.WithContext(b, ctx)
	return backoff.WithMaxRetries(b, uint64(policy.MaxAttempts-1))
}

func classify(err error) error {
	if err == nil {
		return nil
	}

	var fatalErr bridgeerrors.FatalError
	if errors.As(err, &fatalErr) && fatalErr.IsFatal() {
		return backoff.Permanent(err)
	}

	var retryableErr bridgeerrors.RetryableError
	if errors.As(err, &retryableErr) && !retryableErr.IsRetryable() {
		return backoff.Permanent(err)
	}

	return err
}

// Retry runs fn under policy, retrying anything not marked fatal or
// non-retryable, until success, exhaustion, or ctx cancellation.
func Retry(ctx context.Context, policy Policy, fn func() error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = constants.DefaultRetryMaxAttempts
	}

	return backoff.Retry(func() error {
		return classify(fn())
	}, newBackOff(ctx, policy))
}

// RetryWithCallback behaves like Retry and additionally invokes onRetry
// before each backoff sleep, for per-attempt logging and metrics.
func RetryWithCallback(ctx context.Context, policy Policy, fn func() error, onRetry func(attempt int, err error, nextDelay time.Duration)) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = constants.DefaultRetryMaxAttempts
	}

	attempt := 0
	operation := func() error {
		attempt++
		return classify(fn())
	}

	notify := func(err error, nextDelay time.Duration) {
		if onRetry != nil {
			onRetry(attempt, err, nextDelay)
		}
	}

	return backoff.RetryNotify(operation, newBackOff(ctx, policy), notify)
}
