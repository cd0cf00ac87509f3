// Package retry runs operations with capped exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 30 * time.Second

	// jitterFraction bounds the random extra wait as a share of the capped delay.
	jitterFraction = 0.25
)

// Policy configures one Do call. It holds no state between calls.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt, so
	// MaxRetries=3 allows 4 attempts in total.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// ShouldRetry classifies a failure of the given zero-based attempt.
	// Defaults to IsTransient.
	ShouldRetry func(err error, attempt int) bool

	// OnRetry fires before each sleep with the failure, the number of the
	// upcoming retry (1-based) and the delay about to be waited.
	OnRetry func(err error, retry int, delay time.Duration)
}

// DefaultPolicy returns 3 retries, 1s base delay, 30s cap.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.ShouldRetry == nil {
		p.ShouldRetry = func(err error, _ int) bool { return IsTransient(err) }
	}
	return p
}

// Delay returns the unjittered wait after the given zero-based attempt:
// min(MaxDelay, BaseDelay * 2^attempt).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.normalized()
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if d > p.MaxDelay/2 {
			return p.MaxDelay
		}
		d *= 2
	}
	return min(d, p.MaxDelay)
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// retry budget is spent. The last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	attempt := 0
	operation := func() (T, error) {
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		current := attempt
		attempt++
		if !p.ShouldRetry(err, current) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&jitteredBackOff{policy: p}),
		backoff.WithMaxTries(uint(p.MaxRetries+1)), // #nosec G115 -- normalized to >= 0
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, delay time.Duration) {
			if p.OnRetry != nil {
				p.OnRetry(err, attempt, delay)
			}
		}),
	)

	// The final attempt returns before backoff unwraps permanent errors.
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return res, err
}

// jitteredBackOff implements backoff.BackOff with the Policy delay plus up
// to 25% random jitter.
type jitteredBackOff struct {
	policy  Policy
	attempt int
}

func (b *jitteredBackOff) Reset() { b.attempt = 0 }

func (b *jitteredBackOff) NextBackOff() time.Duration {
	d := b.policy.Delay(b.attempt)
	b.attempt++
	return d + Jitter(d)
}

// Jitter returns a random duration in [0, 0.25*d].
func Jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Float64() * jitterFraction * float64(d))
}
