// Package session caches cookie-based login sessions per service instance.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL stays under qBittorrent's default one hour WebUI session timeout.
	DefaultTTL = 55 * time.Minute

	// DefaultLoginTimeout bounds a shared login, which no single caller owns.
	DefaultLoginTimeout = 30 * time.Second
)

// ErrEmptySession is returned by GetOrLogin when login yields no identifier.
var ErrEmptySession = errors.New("login returned an empty session id")

// Entry is one cached session.
type Entry struct {
	SID       string
	ExpiresAt time.Time
}

// Cache maps a normalized base URL to its session. Entries are lazily
// expired on read and removed in bulk by Sweep.
type Cache struct {
	mu           sync.RWMutex
	entries      map[string]Entry
	ttl          time.Duration
	loginTimeout time.Duration
	now          func() time.Time
	group        singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLoginTimeout bounds each shared login.
func WithLoginTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.loginTimeout = d
		}
	}
}

// NewCache creates a cache whose entries live for ttl.
func NewCache(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries:      make(map[string]Entry),
		ttl:          ttl,
		loginTimeout: DefaultLoginTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the lifetime given to new entries.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the session for baseURL if present and not expired.
func (c *Cache) Get(baseURL string) (string, bool) {
	c.mu.RLock()
	e, ok := c.entries[baseURL]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}
	if !c.now().Before(e.ExpiresAt) {
		c.mu.Lock()
		// Only drop the entry we looked at; a fresh login may have replaced it.
		if cur, ok := c.entries[baseURL]; ok && cur == e {
			delete(c.entries, baseURL)
		}
		c.mu.Unlock()
		return "", false
	}
	return e.SID, true
}

// Set stores sid for baseURL, replacing any previous session.
func (c *Cache) Set(baseURL, sid string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[baseURL] = Entry{SID: sid, ExpiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops the session for baseURL.
func (c *Cache) Invalidate(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, baseURL)
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (c *Cache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.ExpiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// GetOrLogin returns the cached session for baseURL or runs login to get a
// new one. Concurrent callers for the same baseURL share one login, which
// runs detached from any caller's cancellation and is bounded by the login
// timeout. Each caller still returns as soon as its own ctx is done.
func (c *Cache) GetOrLogin(ctx context.Context, baseURL string, login func(ctx context.Context) (string, error)) (string, error) {
	if sid, ok := c.Get(baseURL); ok {
		return sid, nil
	}

	ch := c.group.DoChan(baseURL, func() (any, error) {
		// Another caller may have finished a login between Get and DoChan.
		if sid, ok := c.Get(baseURL); ok {
			return sid, nil
		}

		loginCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loginTimeout)
		defer cancel()

		sid, err := login(loginCtx)
		if err != nil {
			return "", err
		}
		if sid == "" {
			return "", ErrEmptySession
		}
		c.Set(baseURL, sid)
		return sid, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}
