package client

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/logger"
)

// Probe checks whether the service described by cfg answers. It never
// retries and reduces every failure to false.
func (c *Client) Probe(ctx context.Context, cfg *domain.ServiceConfiguration) bool {
	if err := c.validate(cfg); err != nil {
		return false
	}

	var err error
	if c.opts.Auth.UsesSession() {
		// A fresh login proves both reachability and credentials.
		_, err = c.login(ctx, cfg)
	} else {
		_, _, err = c.send(ctx, cfg, http.MethodGet, c.buildURL(cfg, c.opts.StatusEndpoint, nil), nil, nil)
	}

	if err != nil {
		c.log.Debug("health probe failed",
			logger.String("base_url", cfg.TrimmedBaseURL()),
			logger.Error(err))
		return false
	}
	return true
}
