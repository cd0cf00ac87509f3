// Package auth defines how credentials are attached to outbound requests.
package auth

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/arrgate/internal/domain"
)

// Kind tags a Strategy.
type Kind int

const (
	KindNone Kind = iota
	KindAPIKeyHeader
	KindBearerToken
	KindFormSession
)

func (k Kind) String() string {
	switch k {
	case KindAPIKeyHeader:
		return "api_key_header"
	case KindBearerToken:
		return "bearer_token"
	case KindFormSession:
		return "form_session"
	default:
		return "none"
	}
}

const (
	// DefaultBearerTemplate is used when BearerToken gets an empty template.
	DefaultBearerTemplate = "Bearer {apiKey}"

	apiKeyPlaceholder = "{apiKey}"
)

// Strategy is a closed set of header-injection policies. It is an
// immutable value; build it with APIKeyHeader, BearerToken, FormSession or
// NoAuth.
type Strategy struct {
	kind       Kind
	headerName string
	template   string
}

// APIKeyHeader sends the API key verbatim in the named header.
func APIKeyHeader(headerName string) Strategy {
	return Strategy{kind: KindAPIKeyHeader, headerName: headerName}
}

// BearerToken renders template into the Authorization header, replacing
// {apiKey}. Non-standard schemes such as `MediaBrowser Token="{apiKey}"`
// are supported.
func BearerToken(template string) Strategy {
	if template == "" {
		template = DefaultBearerTemplate
	}
	return Strategy{kind: KindBearerToken, headerName: "Authorization", template: template}
}

// FormSession marks cookie-authenticated services. Apply leaves headers
// untouched; the client adds the session cookie.
func FormSession() Strategy {
	return Strategy{kind: KindFormSession}
}

// NoAuth sends nothing.
func NoAuth() Strategy {
	return Strategy{kind: KindNone}
}

func (s Strategy) Kind() Kind { return s.kind }

// UsesSession reports whether requests need the session cache.
func (s Strategy) UsesSession() bool { return s.kind == KindFormSession }

// Apply returns a copy of headers with the credential of cfg attached.
// The input is never mutated and no I/O happens.
func (s Strategy) Apply(headers http.Header, cfg domain.ServiceConfiguration) http.Header {
	out := headers.Clone()
	if out == nil {
		out = http.Header{}
	}

	switch s.kind {
	case KindAPIKeyHeader:
		out.Set(s.headerName, cfg.APIKey)
	case KindBearerToken:
		out.Set(s.headerName, strings.ReplaceAll(s.template, apiKeyPlaceholder, cfg.APIKey))
	case KindFormSession, KindNone:
	}
	return out
}
