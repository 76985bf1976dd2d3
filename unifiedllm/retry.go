package unifiedllm

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy controls how often one model call is repeated after a
// retryable failure (server still loading the model, connection refused,
// rate limit). Compile failures never pass through here.
type RetryPolicy struct {
	MaxRetries int           // retries after the first call
	BaseDelay  time.Duration // wait before the first retry
	MaxDelay   time.Duration // upper bound for any single wait
	Multiplier float64       // growth factor per retry, values below 1 act as 1
	Jitter     bool          // scale each wait by a random factor in [0.5, 1.5)

	// OnRetry, when set, is called before each wait. attempt starts at 1.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy allows two retries, waiting about 1s then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2,
		Jitter:     true,
	}
}

// Delay returns the wait before retry number attempt+1.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	growth := p.Multiplier
	if growth < 1 {
		growth = 1
	}
	delay := float64(p.BaseDelay)
	for i := 0; i < attempt && delay < float64(p.MaxDelay); i++ {
		delay *= growth
	}
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.Jitter {
		delay *= 0.5 + rand.Float64()
	}
	return time.Duration(delay)
}

// waitFor picks the delay before the next call. A Retry-After hint from
// the server replaces the computed backoff; a hint longer than MaxDelay
// means the call should not be retried at all.
func (p RetryPolicy) waitFor(err error, attempt int) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter != nil {
		hint := time.Duration(*rl.RetryAfter * float64(time.Second))
		if p.MaxDelay > 0 && hint > p.MaxDelay {
			return 0, false
		}
		return hint, true
	}
	return p.Delay(attempt), true
}

// Retry calls fn until it succeeds, fails with a non-retryable error, or
// the policy runs out of retries. It also returns how many calls were made.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, int, error) {
	var zero T
	for calls := 1; ; calls++ {
		result, err := fn(ctx)
		if err == nil {
			return result, calls, nil
		}
		retry := calls - 1
		if retry >= policy.MaxRetries || !IsRetryable(err) {
			return zero, calls, err
		}
		delay, ok := policy.waitFor(err, retry)
		if !ok {
			return zero, calls, err
		}
		if policy.OnRetry != nil {
			policy.OnRetry(err, retry+1, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, calls, &AbortError{SDKError: SDKError{Message: "model call cancelled while waiting to retry", Cause: ctx.Err()}}
		case <-timer.C:
		}
	}
}
