package oauth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// OAuth 2.0 parameter names used by the implicit flow.
const (
	RedirectURIParam      = "redirect_uri"
	ClientIDParam         = "client_id"
	ScopeParam            = "scope"
	StateParam            = "state"
	ResponseTypeParam     = "response_type"
	PromptParam           = "prompt"
	NonceParam            = "nonce"
	AccessTokenParam      = "access_token"
	TokenTypeParam        = "token_type"
	ExpiresInParam        = "expires_in"
	ErrorParam            = "error"
	ErrorDescriptionParam = "error_description"
)

const (
	// ImplicitResponseType is the response_type value of the implicit flow.
	ImplicitResponseType = "token"

	// scopeSeparator joins scope tokens in the scope parameter.
	scopeSeparator = "+"
)

// ErrInvalidConfig is returned when the authorization or redirect URL cannot be parsed.
var ErrInvalidConfig = errors.New("invalid authorization configuration")

// AuthorizationParams holds everything needed to build one authorization URL.
type AuthorizationParams struct {
	// AuthURL is the authorization endpoint.
	AuthURL string
	// RedirectURL is the registered redirect URI.
	RedirectURL string
	// ClientID is the OAuth client identifier.
	ClientID string
	// Scopes is the ordered list of requested scopes.
	Scopes []string
	// State is the anti-CSRF value echoed back by the provider.
	State string
	// Prompt is appended as prompt=<value> when not empty.
	Prompt string
	// Nonce is appended as nonce=<value> when not empty.
	Nonce string
}

// NewState returns a fresh unpredictable value for the state or nonce parameter.
func NewState() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	return id.String(), nil
}

// BuildAuthorizationURL returns the implicit-flow authorization URL.
// Parameters are emitted in a fixed order: redirect_uri, client_id, scope, state,
// response_type, then the optional prompt and nonce.
func BuildAuthorizationURL(params AuthorizationParams) (string, error) {
	authURL, err := parseAbsolute(params.AuthURL)
	if err != nil {
		return "", fmt.Errorf("%w: auth url: %w", ErrInvalidConfig, err)
	}

	if _, err = parseAbsolute(params.RedirectURL); err != nil {
		return "", fmt.Errorf("%w: redirect url: %w", ErrInvalidConfig, err)
	}

	query := []string{
		RedirectURIParam + "=" + url.QueryEscape(params.RedirectURL),
		ClientIDParam + "=" + url.QueryEscape(params.ClientID),
		ScopeParam + "=" + JoinScopes(params.Scopes),
		StateParam + "=" + url.QueryEscape(params.State),
		ResponseTypeParam + "=" + ImplicitResponseType,
	}

	if params.Prompt != "" {
		query = append(query, PromptParam+"="+url.QueryEscape(params.Prompt))
	}

	if params.Nonce != "" {
		query = append(query, NonceParam+"="+url.QueryEscape(params.Nonce))
	}

	base, _, _ := strings.Cut(params.AuthURL, "#")

	separator := "?"
	if authURL.RawQuery != "" {
		separator = "&"
	} else {
		base = strings.TrimSuffix(base, "?")
	}

	return base + separator + strings.Join(query, "&"), nil
}

// JoinScopes percent-encodes every scope and joins them with "+".
// Spaces inside a scope become %20 so that "+" only ever separates tokens.
func JoinScopes(scopes []string) string {
	encoded := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		encoded = append(encoded, strings.ReplaceAll(url.QueryEscape(scope), "+", "%20"))
	}

	return strings.Join(encoded, scopeSeparator)
}

func parseAbsolute(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	if !parsed.IsAbs() || parsed.Host == "" {
		return nil, fmt.Errorf("'%s' is not an absolute URL", raw)
	}

	return parsed, nil
}
