// Package client implements the per-service HTTP client shared by every
// integration: config lookup, auth, retries, sessions and error mapping.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/arrgate/internal/apierr"
	"github.com/MrSnakeDoc/arrgate/internal/auth"
	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/logger"
	"github.com/MrSnakeDoc/arrgate/internal/metrics"
	"github.com/MrSnakeDoc/arrgate/internal/retry"
	"github.com/MrSnakeDoc/arrgate/internal/session"
	"github.com/MrSnakeDoc/arrgate/internal/version"
)

const (
	// DefaultRequestTimeout bounds one physical attempt.
	DefaultRequestTimeout = 30 * time.Second

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 10 << 20
)

// ConfigGetter is the slice of domain.ConfigStore the client needs.
type ConfigGetter interface {
	Get(ctx context.Context, userID, serviceName string) (*domain.ServiceConfiguration, error)
}

// Options describes one integrated service.
type Options struct {
	// ServiceName is the catalog key used to look up configurations.
	ServiceName string
	// DisplayName appears in error messages, e.g. "Radarr".
	DisplayName string
	// APIVersionPrefix is inserted between the base URL and the endpoint.
	APIVersionPrefix string
	Auth             auth.Strategy
	// RequireAPIKey rejects configurations with a blank APIKey.
	RequireAPIKey bool
	// StatusEndpoint is probed by health checks. Relative to the prefix.
	StatusEndpoint string
}

// Deps are the shared collaborators injected into every client.
type Deps struct {
	Store    ConfigGetter
	HTTP     *http.Client
	Sessions *session.Cache
	// Retry is copied per call. Zero delays fall back to the retry defaults.
	Retry    retry.Policy
	Logger   logger.Logger
	Metrics  *metrics.Metrics
}

// Client talks to one service on behalf of any user.
type Client struct {
	opts     Options
	store    ConfigGetter
	http     *http.Client
	sessions *session.Cache
	retry    retry.Policy
	log      logger.Logger
	metrics  *metrics.Metrics
}

// New builds a client. Missing optional deps get working defaults.
func New(opts Options, deps Deps) *Client {
	if opts.DisplayName == "" {
		opts.DisplayName = opts.ServiceName
	}
	if deps.HTTP == nil {
		deps.HTTP = &http.Client{Timeout: DefaultRequestTimeout}
	}
	if deps.Sessions == nil && opts.Auth.UsesSession() {
		deps.Sessions = session.NewCache(session.DefaultTTL)
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}

	return &Client{
		opts:     opts,
		store:    deps.Store,
		http:     deps.HTTP,
		sessions: deps.Sessions,
		retry:    deps.Retry,
		log:      deps.Logger.With(logger.Service(opts.ServiceName)),
		metrics:  deps.Metrics,
	}
}

// ServiceName returns the catalog key of the client.
func (c *Client) ServiceName() string { return c.opts.ServiceName }

// DisplayName returns the human-readable service name.
func (c *Client) DisplayName() string { return c.opts.DisplayName }

// loadConfig fetches and validates the user's configuration. Every failure
// here is a configuration error and is never retried.
func (c *Client) loadConfig(ctx context.Context, userID string) (*domain.ServiceConfiguration, error) {
	if c.store == nil {
		return nil, apierr.NotConfigured(c.opts.DisplayName)
	}
	cfg, err := c.store.Get(ctx, userID, c.opts.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("load %s configuration: %w", c.opts.ServiceName, err)
	}
	if err := c.validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Client) validate(cfg *domain.ServiceConfiguration) error {
	if cfg == nil || cfg.TrimmedBaseURL() == "" {
		return apierr.NotConfigured(c.opts.DisplayName)
	}
	if !cfg.IsEnabled {
		return apierr.Disabled(c.opts.DisplayName)
	}
	if c.opts.RequireAPIKey && !cfg.HasAPIKey() {
		return apierr.MissingCredential(c.opts.DisplayName)
	}
	return nil
}

// baseHeaders returns the headers every request starts from.
func baseHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("User-Agent", version.UserAgent())
	return h
}
