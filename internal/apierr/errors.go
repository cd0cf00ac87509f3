// Package apierr holds the closed set of failures the service client can
// produce and the formatter that turns them into user-facing messages.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrLoginFailed marks a rejected form login (bad credentials or no
	// session cookie in the response).
	ErrLoginFailed = errors.New("login failed")
	// ErrLoginLockedOut marks a form login refused because of too many
	// failed attempts. It is never retried.
	ErrLoginLockedOut = errors.New("login locked out")
)

// ServiceClientError is a failure reported by (or while talking to) an
// integrated service. StatusCode is zero when no HTTP status applies.
type ServiceClientError struct {
	Service    string // display name, e.g. "Radarr"
	StatusCode int
	Message    string
	Err        error // optional cause
}

func (e *ServiceClientError) Error() string {
	return e.Message
}

func (e *ServiceClientError) Unwrap() error { return e.Err }

// IsAuthError reports a 401 or 403.
func (e *ServiceClientError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsNotFound reports a 404.
func (e *ServiceClientError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// IsBadRequest reports a 400.
func (e *ServiceClientError) IsBadRequest() bool { return e.StatusCode == http.StatusBadRequest }

// FromResponse builds the error for a non-2xx response, using the richest
// message the body yields.
func FromResponse(service string, statusCode int, body []byte) *ServiceClientError {
	msg, ok := ParseErrorBody(body)
	if !ok {
		msg = fmt.Sprintf("%s API error: %d %s", service, statusCode, http.StatusText(statusCode))
	}
	return &ServiceClientError{
		Service:    service,
		StatusCode: statusCode,
		Message:    msg,
	}
}

// ConfigErrorKind enumerates setup problems.
type ConfigErrorKind int

const (
	NotConfiguredKind ConfigErrorKind = iota + 1
	DisabledKind
	MissingCredentialKind
)

func (k ConfigErrorKind) String() string {
	switch k {
	case NotConfiguredKind:
		return "not_configured"
	case DisabledKind:
		return "disabled"
	case MissingCredentialKind:
		return "missing_credential"
	default:
		return "unknown"
	}
}

// ConfigError is a setup problem the user must fix in settings. It carries
// no status code and is never retried.
type ConfigError struct {
	Kind    ConfigErrorKind
	Service string
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// NotConfigured is returned when the user has no configuration for a service.
func NotConfigured(service string) *ConfigError {
	return &ConfigError{
		Kind:    NotConfiguredKind,
		Service: service,
		Message: fmt.Sprintf("%s is not configured. Please add your %s URL and API key in settings.", service, service),
	}
}

// Disabled is returned when the configuration exists but is switched off.
func Disabled(service string) *ConfigError {
	return &ConfigError{
		Kind:    DisabledKind,
		Service: service,
		Message: fmt.Sprintf("%s is disabled. Enable it in settings to use this feature.", service),
	}
}

// MissingCredential is returned when a required API key is blank.
func MissingCredential(service string) *ConfigError {
	return &ConfigError{
		Kind:    MissingCredentialKind,
		Service: service,
		Message: fmt.Sprintf("%s API key is not configured. Please add it in settings.", service),
	}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *ServiceClientError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
