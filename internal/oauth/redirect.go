package oauth

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// RedirectMatcher recognizes requests addressed to one redirect URI.
// Scheme, query and fragment are ignored: implicit-flow tokens travel in the fragment.
type RedirectMatcher struct {
	host string
	path string
}

// NewRedirectMatcher parses the redirect URI once for repeated matching.
func NewRedirectMatcher(redirectURL string) (*RedirectMatcher, error) {
	parsed, err := parseAbsolute(redirectURL)
	if err != nil {
		return nil, err
	}

	return &RedirectMatcher{
		host: parsed.Host,
		path: normalizePath(parsed.Path),
	}, nil
}

// Match reports whether candidate points at the redirect URI.
// Candidates that fail to parse never match.
func (m *RedirectMatcher) Match(candidate string) bool {
	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Host == "" {
		return false
	}

	return strings.EqualFold(parsed.Host, m.host) && normalizePath(parsed.Path) == m.path
}

// Target returns the host and path the matcher compares against.
func (m *RedirectMatcher) Target() string {
	return m.host + m.path
}

// MatchesRedirect reports whether candidate has the same host and path as redirectURL.
func MatchesRedirect(candidate, redirectURL string) bool {
	matcher, err := NewRedirectMatcher(redirectURL)
	if err != nil {
		return false
	}

	return matcher.Match(candidate)
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}

	return path
}

// Redirect holds what the provider sent back on the redirect URI.
type Redirect struct {
	// State is the echoed anti-CSRF value.
	State string
	// Error is the OAuth error code, if the provider reported one.
	Error string
	// ErrorDescription is the human-readable error text.
	ErrorDescription string
	// Token is the access token delivered by the implicit flow, if any.
	Token *oauth2.Token
}

// HasError reports whether the provider returned an OAuth error.
func (r *Redirect) HasError() bool {
	return r.Error != "" || r.ErrorDescription != ""
}

// ParseRedirect extracts the implicit-flow response from a redirect URL.
// Fragment parameters win over query parameters with the same name.
func ParseRedirect(raw string) (*Redirect, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	values := parsed.Query()

	// Fragment is already unescaped by url.Parse.
	fragment, err := url.ParseQuery(parsed.EscapedFragment())
	if err != nil {
		return nil, err
	}

	for key, value := range fragment {
		values[key] = value
	}

	redirect := &Redirect{
		State:            values.Get(StateParam),
		Error:            values.Get(ErrorParam),
		ErrorDescription: values.Get(ErrorDescriptionParam),
	}

	if accessToken := values.Get(AccessTokenParam); accessToken != "" {
		redirect.Token = &oauth2.Token{
			AccessToken: accessToken,
			TokenType:   values.Get(TokenTypeParam),
		}

		if expiresIn, convErr := strconv.ParseInt(values.Get(ExpiresInParam), 10, 64); convErr == nil && expiresIn > 0 {
			redirect.Token.ExpiresIn = expiresIn
			redirect.Token.Expiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
		}
	}

	return redirect, nil
}
