// Package redis opens the go-redis client used by the configuration store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/arrgate/internal/logger"
	"github.com/MrSnakeDoc/arrgate/internal/retry"
)

// ConnectOptions defines the Redis client and its startup ping loop.
type ConnectOptions struct {
	Addr         string // ex: "localhost:6379"
	User         string
	Password     string
	RedisDB      int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	ConnectTimeout time.Duration // total budget for the ping loop (ex: 30s)
	RetryInterval  time.Duration // first backoff, doubled each attempt (ex: 2s)
	MaxWait        time.Duration // backoff cap (ex: 10s)
	PingTimeout    time.Duration // per-ping timeout (ex: 2s)
	WarnThreshold  int           // attempts logged at warn before switching to error
}

func (o ConnectOptions) validate() error {
	var errs []error
	positive := []struct {
		name string
		d    time.Duration
	}{
		{"ConnectTimeout", o.ConnectTimeout},
		{"RetryInterval", o.RetryInterval},
		{"MaxWait", o.MaxWait},
		{"PingTimeout", o.PingTimeout},
	}
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", p.name, p.d))
		}
	}
	if o.WarnThreshold < 0 {
		errs = append(errs, fmt.Errorf("WarnThreshold must be >= 0, got %d", o.WarnThreshold))
	}
	return errors.Join(errs...)
}

// New creates a Redis client and pings it with the shared retry policy
// until it answers or ConnectTimeout elapses.
func New(opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := opts.validate(); err != nil {
		log.Error("invalid redis options", logger.Error(err))
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.RedisDB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	c := &connector{client: client, opts: opts, log: log.With(logger.String("addr", opts.Addr))}
	if err := c.waitReady(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

type connector struct {
	client  *redis.Client
	opts    ConnectOptions
	log     logger.Logger
	attempt int
}

// waitReady is bounded by the deadline rather than an attempt count.
func (c *connector) waitReady() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.ConnectTimeout)
	defer cancel()
	start := time.Now()

	var lastErr error
	policy := retry.Policy{
		MaxRetries:  math.MaxInt32,
		BaseDelay:   c.opts.RetryInterval,
		MaxDelay:    c.opts.MaxWait,
		ShouldRetry: func(error, int) bool { return true },
		OnRetry: func(err error, _ int, delay time.Duration) {
			c.onRetry(err, delay, timeLeft(ctx))
		},
	}

	_, err := retry.Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
		c.attempt++
		pingCtx, pingCancel := context.WithTimeout(ctx, c.opts.PingTimeout)
		defer pingCancel()
		lastErr = c.client.Ping(pingCtx).Err()
		return struct{}{}, lastErr
	})
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		c.log.Error("redis unavailable",
			logger.Int("attempts", c.attempt),
			logger.Duration("timeout", c.opts.ConnectTimeout),
			logger.Error(lastErr))
		return fmt.Errorf("redis unavailable at %s after %d attempts (timeout: %v): %w",
			c.opts.Addr, c.attempt, c.opts.ConnectTimeout, lastErr)
	}

	if c.attempt > 1 {
		c.log.Warn("connected to redis after retry",
			logger.Int("attempts", c.attempt),
			logger.Duration("elapsed", time.Since(start)))
	} else {
		c.log.Info("connected to redis")
	}
	return nil
}

func (c *connector) onRetry(err error, delay, remaining time.Duration) {
	fields := []logger.Field{
		logger.Int("attempt", c.attempt),
		logger.Duration("next_retry_in", delay),
		logger.Duration("remaining", remaining),
		logger.Error(err),
	}
	switch {
	case remaining < 10*time.Second:
		c.log.Error("redis still down, deadline approaching", fields...)
	case c.attempt <= c.opts.WarnThreshold:
		c.log.Warn("redis ping failed, retrying", fields...)
	default:
		c.log.Error("redis still unavailable", fields...)
	}
}

func timeLeft(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return time.Until(deadline)
}
