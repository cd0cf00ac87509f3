package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/arrgate/internal/apierr"
)

func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   4 * time.Millisecond,
	}
}

func TestDoAlwaysFailingTransient(t *testing.T) {
	calls := 0
	want := &apierr.ServiceClientError{Service: "Radarr", StatusCode: 503, Message: "unavailable"}

	_, err := Do(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		calls++
		return 0, want
	})

	assert.Equal(t, 4, calls)
	assert.Same(t, want, err, "last error must come back unchanged")
}

func TestDoNeverRetriesBadRequest(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 3, 10} {
		t.Run(fmt.Sprintf("max=%d", maxRetries), func(t *testing.T) {
			calls := 0
			want := &apierr.ServiceClientError{StatusCode: 400, Message: "invalid"}

			_, err := Do(context.Background(), fastPolicy(maxRetries), func(context.Context) (string, error) {
				calls++
				return "", want
			})

			assert.Equal(t, 1, calls)
			assert.Same(t, want, err)
		})
	}
}

func TestDoPermanentErrorOnLastAttemptIsUnwrapped(t *testing.T) {
	calls := 0
	transient := &apierr.ServiceClientError{StatusCode: 502}
	permanent := &apierr.ServiceClientError{StatusCode: 404}

	_, err := Do(context.Background(), fastPolicy(1), func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, transient
		}
		return 0, permanent
	})

	assert.Equal(t, 2, calls)
	assert.Same(t, permanent, err)
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &apierr.ServiceClientError{StatusCode: 429}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDoZeroRetries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(0), func(context.Context) (int, error) {
		calls++
		return 0, &apierr.ServiceClientError{StatusCode: 503}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoOnRetryObserver(t *testing.T) {
	p := fastPolicy(2)
	var retries []int
	var delays []time.Duration
	p.OnRetry = func(_ error, retry int, delay time.Duration) {
		retries = append(retries, retry)
		delays = append(delays, delay)
	}

	_, _ = Do(context.Background(), p, func(context.Context) (int, error) {
		return 0, &apierr.ServiceClientError{StatusCode: 504}
	})

	assert.Equal(t, []int{1, 2}, retries)
	require.Len(t, delays, 2)
	for i, d := range delays {
		base := p.Delay(i)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/4)
	}
}

func TestDoCustomShouldRetry(t *testing.T) {
	p := fastPolicy(5)
	var seen []int
	p.ShouldRetry = func(_ error, attempt int) bool {
		seen = append(seen, attempt)
		return attempt < 1
	}

	calls := 0
	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("business rule")
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []int{0, 1}, seen)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	calls := 0
	_, err := Do(ctx, p, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, &apierr.ServiceClientError{StatusCode: 503}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDelayMonotonicAndCapped(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 30 * time.Second}

	want := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	prev := time.Duration(0)
	for a, w := range want {
		got := p.Delay(a)
		assert.Equal(t, w, got, "attempt %d", a)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}

	for a := 0; a < 200; a++ {
		assert.LessOrEqual(t, p.Delay(a), p.MaxDelay)
	}
}

func TestJitterBounds(t *testing.T) {
	for i := 0; i < 1000; i++ {
		j := Jitter(time.Second)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.LessOrEqual(t, j, 250*time.Millisecond)
	}
	assert.Zero(t, Jitter(0))
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, 30*time.Second, p.MaxDelay)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "429", err: &apierr.ServiceClientError{StatusCode: 429}, want: true},
		{name: "502", err: &apierr.ServiceClientError{StatusCode: 502}, want: true},
		{name: "503", err: &apierr.ServiceClientError{StatusCode: 503}, want: true},
		{name: "504", err: &apierr.ServiceClientError{StatusCode: 504}, want: true},
		{name: "500", err: &apierr.ServiceClientError{StatusCode: 500}, want: false},
		{name: "400", err: &apierr.ServiceClientError{StatusCode: 400}, want: false},
		{name: "401", err: &apierr.ServiceClientError{StatusCode: 401}, want: false},
		{name: "404", err: &apierr.ServiceClientError{StatusCode: 404}, want: false},
		{name: "config error", err: apierr.NotConfigured("Radarr"), want: false},
		{name: "lockout", err: &apierr.ServiceClientError{StatusCode: 403, Err: apierr.ErrLoginLockedOut}, want: false},
		{name: "url error", err: &url.Error{Op: "Get", URL: "http://x", Err: errors.New("dial failed")}, want: true},
		{name: "net timeout", err: timeoutErr{}, want: true},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "radarr"}, want: true},
		{name: "econnreset", err: fmt.Errorf("read: %w", syscall.ECONNRESET), want: true},
		{name: "message pattern", err: errors.New("socket hang up"), want: true},
		{name: "canceled", err: &url.Error{Op: "Get", URL: "http://x", Err: context.Canceled}, want: false},
		{name: "business error", err: errors.New("movie already exists"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
