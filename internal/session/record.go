package session

import (
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Record is everything captured from the browser when the redirect fired.
type Record struct {
	// Cookies holds the cookies visible to the authorization URL.
	Cookies []Cookie `json:"cookies"`
	// LocalStorage holds the page's local-storage entries in enumeration order.
	// It is absent when capture was disabled or failed.
	LocalStorage []LocalStorageItem `json:"localStorage,omitempty"`
	// Token is the access token delivered in the redirect fragment, if any.
	Token *oauth2.Token `json:"token,omitempty"`
	// CapturedAt is when the redirect was detected.
	CapturedAt time.Time `json:"capturedAt,omitzero"`
}

// LocalStorageItem is one local-storage entry.
type LocalStorageItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Cookie is a browser cookie in the layout Electron's cookie store uses.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain,omitempty"`
	Path     string `json:"path,omitempty"`
	HostOnly bool   `json:"hostOnly,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	Session  bool   `json:"session,omitempty"`
	// ExpirationDate is seconds since the Unix epoch. Zero for session cookies.
	ExpirationDate float64 `json:"expirationDate,omitempty"`
	// SameSite is "Strict", "Lax" or "None" when the browser reports it.
	SameSite string `json:"sameSite,omitempty"`
}

// Expires returns the expiration time, or the zero time for session cookies.
func (c Cookie) Expires() time.Time {
	if c.Session || c.ExpirationDate <= 0 {
		return time.Time{}
	}

	seconds, fraction := math.Modf(c.ExpirationDate)

	return time.Unix(int64(seconds), int64(fraction*float64(time.Second))).UTC()
}

// IsExpired reports whether the cookie expired before now.
func (c Cookie) IsExpired(now time.Time) bool {
	expires := c.Expires()

	return !expires.IsZero() && expires.Before(now)
}

// URL returns a URL the cookie would be sent to.
func (c Cookie) URL() *url.URL {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}

	path := c.Path
	if path == "" {
		path = "/"
	}

	return &url.URL{
		Scheme: scheme,
		Host:   strings.TrimPrefix(c.Domain, "."),
		Path:   path,
	}
}

// HTTPCookie converts the cookie for use with net/http.
// Host-only cookies keep an empty domain so a cookie jar scopes them to the exact host.
func (c Cookie) HTTPCookie() *http.Cookie {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Expires:  c.Expires(),
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		SameSite: parseSameSite(c.SameSite),
	}

	if !c.HostOnly {
		cookie.Domain = c.Domain
	}

	return cookie
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(value) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none", "no_restriction":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
