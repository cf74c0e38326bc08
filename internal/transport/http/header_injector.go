package http

//go:generate $MOCKGEN -source=header_injector.go -destination=mocks/header_injector_mock.go

import (
	"net/http"
	"net/textproto"
)

// UserAgentHeader is the HTTP header name for User-Agent.
const UserAgentHeader = "User-Agent"

// HeaderSource supplies the headers a replayed request carries.
type HeaderSource interface {
	// Headers returns header names mapped to their values.
	Headers() map[string]string
}

// BrowserHeaders reproduces the headers the browser was told to send during login:
// the User-Agent override and the configured extra headers.
type BrowserHeaders struct {
	// UserAgent is the User-Agent header value.
	UserAgent string
	// Extra are the additional headers.
	Extra map[string]string
}

// Headers returns the extra headers together with the User-Agent.
// An explicit User-Agent entry among the extra headers wins.
func (h BrowserHeaders) Headers() map[string]string {
	headers := make(map[string]string, len(h.Extra)+1)

	if h.UserAgent != "" {
		headers[UserAgentHeader] = h.UserAgent
	}

	for name, value := range h.Extra {
		headers[textproto.CanonicalMIMEHeaderKey(name)] = value
	}

	return headers
}

// HeaderInjector is a http.RoundTripper that adds the headers of a HeaderSource
// to requests which do not set them already.
type HeaderInjector struct {
	// next is the underlying HTTP round tripper.
	next http.RoundTripper
	// source provides the headers to inject.
	source HeaderSource
}

// NewHeaderInjector wraps next so every request carries the headers of source.
func NewHeaderInjector(next http.RoundTripper, source HeaderSource) http.RoundTripper {
	return &HeaderInjector{
		next:   next,
		source: source,
	}
}

// RoundTrip adds missing headers to a copy of req and passes it on.
// It implements the http.RoundTripper interface.
func (t *HeaderInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	var missing map[string]string

	for name, value := range t.source.Headers() {
		if req.Header.Get(name) != "" {
			continue
		}

		if missing == nil {
			missing = make(map[string]string)
		}

		missing[name] = value
	}

	if len(missing) == 0 {
		return t.next.RoundTrip(req)
	}

	// A RoundTripper must not modify the caller's request.
	clone := req.Clone(req.Context())
	for name, value := range missing {
		clone.Header.Set(name, value)
	}

	return t.next.RoundTrip(clone)
}
