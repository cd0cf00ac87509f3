package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/arrgate/internal/apierr"
	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/logger"
	"github.com/MrSnakeDoc/arrgate/internal/retry"
	"github.com/MrSnakeDoc/arrgate/internal/utils"
)

// RequestOptions tunes one call. Body and Form are mutually exclusive;
// Body is sent as JSON.
type RequestOptions struct {
	Method  string
	Query   url.Values
	Body    any
	Form    url.Values
	Headers http.Header
}

// payload is an encoded request body that can be replayed per attempt.
type payload struct {
	data        []byte
	contentType string
}

func (p *payload) reader() io.Reader {
	if p == nil {
		return nil
	}
	return bytes.NewReader(p.data)
}

func encodeBody(opts RequestOptions) (*payload, error) {
	switch {
	case opts.Form != nil:
		return &payload{
			data:        []byte(opts.Form.Encode()),
			contentType: "application/x-www-form-urlencoded",
		}, nil
	case opts.Body != nil:
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return &payload{data: data, contentType: "application/json"}, nil
	default:
		return nil, nil
	}
}

// Request performs one logical call to endpoint for userID and decodes the
// response into T. A 204 or empty body yields the zero T. When T is string
// the raw body is returned.
func Request[T any](ctx context.Context, c *Client, userID, endpoint string, opts RequestOptions) (T, error) {
	var zero T

	body, err := c.Do(ctx, userID, endpoint, opts)
	if err != nil {
		return zero, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return zero, nil
	}

	if s, ok := any(&zero).(*string); ok {
		*s = string(body)
		return zero, nil
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return zero, fmt.Errorf("decode %s response: %w", c.opts.DisplayName, err)
	}
	return out, nil
}

// Do performs one logical call and returns the raw response body.
func (c *Client) Do(ctx context.Context, userID, endpoint string, opts RequestOptions) ([]byte, error) {
	cfg, err := c.loadConfig(ctx, userID)
	if err != nil {
		return nil, err
	}

	body, err := c.execute(ctx, cfg, endpoint, opts)
	c.metrics.ObserveRequest(c.opts.ServiceName, err)
	return body, err
}

func (c *Client) execute(ctx context.Context, cfg *domain.ServiceConfiguration, endpoint string, opts RequestOptions) ([]byte, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.buildURL(cfg, endpoint, opts.Query)

	p, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}

	log := c.log.With(logger.String("method", method), logger.String("endpoint", endpoint))

	policy := c.retry
	policy.OnRetry = func(err error, n int, delay time.Duration) {
		c.metrics.ObserveRetry(c.opts.ServiceName)
		log.Warn("retrying upstream request",
			logger.Int("retry", n),
			logger.Duration("delay", delay),
			logger.Error(err))
	}

	// healed is shared by all attempts so a call never runs more than one
	// invalidate and re-login cycle. Only a session taken from the cache is
	// healed; a 401 right after a fresh login is surfaced as is.
	healed := false
	return retry.Do(ctx, policy, func(ctx context.Context) ([]byte, error) {
		body, reused, err := c.send(ctx, cfg, method, target, p, opts.Headers)
		if err != nil && reused && !healed && isStaleSession(err) {
			healed = true
			log.Info("session rejected, logging in again",
				logger.String("base_url", cfg.TrimmedBaseURL()))
			c.sessions.Invalidate(cfg.TrimmedBaseURL())
			body, _, err = c.send(ctx, cfg, method, target, p, opts.Headers)
		}
		return body, err
	})
}

// isStaleSession reports a 401 on a regular request, as opposed to a
// rejected login which re-logging cannot fix.
func isStaleSession(err error) bool {
	return apierr.StatusCode(err) == http.StatusUnauthorized && !errors.Is(err, apierr.ErrLoginFailed)
}

func (c *Client) buildURL(cfg *domain.ServiceConfiguration, endpoint string, query url.Values) string {
	var b strings.Builder
	b.WriteString(cfg.TrimmedBaseURL())
	b.WriteString(c.opts.APIVersionPrefix)
	b.WriteString(endpoint)
	if len(query) > 0 {
		if strings.Contains(endpoint, "?") {
			b.WriteByte('&')
		} else {
			b.WriteByte('?')
		}
		b.WriteString(query.Encode())
	}
	return b.String()
}

// send performs exactly one physical HTTP exchange. reused reports that
// the request carried a session cookie taken from the cache.
func (c *Client) send(ctx context.Context, cfg *domain.ServiceConfiguration, method, target string, p *payload, extra http.Header) (body []byte, reused bool, err error) {
	headers := c.opts.Auth.Apply(baseHeaders(), *cfg)
	for k, vs := range extra {
		headers.Del(k)
		for _, v := range vs {
			headers.Add(k, v)
		}
	}

	if c.opts.Auth.UsesSession() {
		sid, cached, err := c.session(ctx, cfg)
		if err != nil {
			return nil, false, err
		}
		reused = cached
		headers.Set("Cookie", "SID="+sid)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, p.reader())
	if err != nil {
		return nil, reused, fmt.Errorf("build %s request: %w", c.opts.DisplayName, err)
	}
	req.Header = headers
	if p != nil {
		req.Header.Set("Content-Type", p.contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, reused, err
	}
	body, err = utils.ReadAllAndClose(resp.Body, maxBodySize)
	if err != nil {
		return nil, reused, fmt.Errorf("read %s response: %w", c.opts.DisplayName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, reused, apierr.FromResponse(c.opts.DisplayName, resp.StatusCode, body)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, reused, nil
	}
	return body, reused, nil
}
