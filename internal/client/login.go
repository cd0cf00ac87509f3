package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/MrSnakeDoc/arrgate/internal/apierr"
	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/logger"
	"github.com/MrSnakeDoc/arrgate/internal/utils"
)

const (
	// LoginPath is the form-login endpoint relative to the base URL.
	LoginPath = "/api/v2/auth/login"

	loginOK = "Ok."
)

var sidPattern = regexp.MustCompile(`SID=([^;]+)`)

// session returns a session id for cfg, logging in when needed. cached
// reports whether the id was already in the cache before this call.
func (c *Client) session(ctx context.Context, cfg *domain.ServiceConfiguration) (sid string, cached bool, err error) {
	if sid, ok := c.sessions.Get(cfg.TrimmedBaseURL()); ok {
		return sid, true, nil
	}
	sid, err = c.sessions.GetOrLogin(ctx, cfg.TrimmedBaseURL(), func(ctx context.Context) (string, error) {
		sid, err := c.login(ctx, cfg)
		c.metrics.ObserveLogin(c.opts.ServiceName, err)
		if err != nil {
			c.log.Warn("login failed",
				logger.String("base_url", cfg.TrimmedBaseURL()),
				logger.Error(err))
			return "", err
		}
		c.log.Info("logged in", logger.String("base_url", cfg.TrimmedBaseURL()))
		return sid, nil
	})
	return sid, false, err
}

// login submits the credentials of cfg and extracts the SID cookie.
func (c *Client) login(ctx context.Context, cfg *domain.ServiceConfiguration) (string, error) {
	username, password := cfg.Credentials()
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	base := cfg.TrimmedBaseURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+LoginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build %s login request: %w", c.opts.DisplayName, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", baseHeaders().Get("User-Agent"))
	// The WebUI rejects logins whose Referer does not match its host.
	req.Header.Set("Referer", base)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	body, err := utils.ReadAllAndClose(resp.Body, maxBodySize)
	if err != nil {
		return "", fmt.Errorf("read %s login response: %w", c.opts.DisplayName, err)
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return "", &apierr.ServiceClientError{
			Service:    c.opts.DisplayName,
			StatusCode: http.StatusForbidden,
			Message:    fmt.Sprintf("%s login blocked: too many failed attempts", c.opts.DisplayName),
			Err:        apierr.ErrLoginLockedOut,
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", apierr.FromResponse(c.opts.DisplayName, resp.StatusCode, body)
	case strings.TrimSpace(string(body)) != loginOK:
		return "", loginRejected(c.opts.DisplayName, "invalid username or password")
	}

	for _, cookie := range resp.Header.Values("Set-Cookie") {
		if m := sidPattern.FindStringSubmatch(cookie); m != nil {
			return m[1], nil
		}
	}
	return "", loginRejected(c.opts.DisplayName, "no session cookie in login response")
}

func loginRejected(service, reason string) *apierr.ServiceClientError {
	return &apierr.ServiceClientError{
		Service:    service,
		StatusCode: http.StatusUnauthorized,
		Message:    fmt.Sprintf("%s login failed: %s", service, reason),
		Err:        apierr.ErrLoginFailed,
	}
}
