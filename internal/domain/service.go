package domain

import (
	"strings"
	"time"
)

// ServiceConfiguration is one user's setup for one integrated service.
//
// It is keyed by (UserID, ServiceName). APIKey and Password only ever hold
// plaintext in process memory: stores seal them before persisting and open
// them on read. Callers re-fetch on every invocation and must not keep
// decrypted copies around beyond the call.
type ServiceConfiguration struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	UserID string `json:"userId"`

	// ServiceName is the catalog identifier, e.g. "radarr".
	ServiceName string `json:"serviceName"`

	// ─────────────────────────────
	// Connection
	// ─────────────────────────────

	// BaseURL is the user-facing root of the service, e.g. http://radarr:7878.
	BaseURL string `json:"baseUrl"`

	// APIKey is the opaque credential. Form-login services encode
	// "username:password" here.
	APIKey string `json:"apiKey,omitempty"`

	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	IsEnabled bool `json:"isEnabled"`

	// ─────────────────────────────
	// Bookkeeping
	// ─────────────────────────────

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TrimmedBaseURL returns BaseURL without trailing slashes.
func (c ServiceConfiguration) TrimmedBaseURL() string {
	return strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
}

// HasAPIKey reports whether a non-blank credential is set.
func (c ServiceConfiguration) HasAPIKey() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Credentials returns the login pair for form-session services. Explicit
// Username/Password win; otherwise APIKey is split on its first colon.
func (c ServiceConfiguration) Credentials() (username, password string) {
	if c.Username != "" {
		return c.Username, c.Password
	}
	user, pass, _ := strings.Cut(c.APIKey, ":")
	return user, pass
}

// Redacted returns a copy safe to hand to clients of the settings API.
func (c ServiceConfiguration) Redacted() ServiceConfiguration {
	out := c
	if out.APIKey != "" {
		out.APIKey = RedactedValue
	}
	if out.Password != "" {
		out.Password = RedactedValue
	}
	return out
}

// RedactedValue replaces secrets in API responses. Sending it back in an
// update keeps the stored secret.
const RedactedValue = "***REDACTED***"
