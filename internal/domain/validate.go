package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrInvalidBaseURL = errors.New("base url must be an absolute http(s) url")
	ErrMissingUser    = errors.New("user id is required")
	ErrMissingService = errors.New("service name is required")
)

// ValidateBaseURL accepts absolute http and https URLs without query or
// fragment. A path prefix is allowed for services behind a sub-path proxy.
func ValidateBaseURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalidBaseURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%w: query and fragment are not allowed", ErrInvalidBaseURL)
	}
	return nil
}

// Validate checks the fields a store needs before persisting c.
// Credentials are not checked here; each service decides what it requires.
func (c ServiceConfiguration) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		return ErrMissingService
	}
	return ValidateBaseURL(c.BaseURL)
}
