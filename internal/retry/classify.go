package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/MrSnakeDoc/arrgate/internal/apierr"
)

// retryableStatus lists upstream statuses worth another try.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// transientPatterns are matched case-insensitively against error text.
var transientPatterns = []string{
	"connection reset",
	"connection refused",
	"econnreset",
	"econnrefused",
	"etimedout",
	"enotfound",
	"timeout",
	"timed out",
	"no such host",
	"socket hang up",
	"broken pipe",
	"eof",
}

// IsTransient reports whether err is likely to succeed on retry: network
// failures, timeouts, DNS errors and 429/502/503/504 responses.
// Configuration errors, login lockouts and other statuses are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if apierr.IsConfigError(err) || errors.Is(err, apierr.ErrLoginLockedOut) {
		return false
	}

	var se *apierr.ServiceClientError
	if errors.As(err, &se) {
		return retryableStatus[se.StatusCode]
	}

	// A caller-side cancellation is not something another attempt can fix.
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
