package session

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestCookie_Expires tests the Expires and IsExpired methods.
func TestCookie_Expires(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		cookie          Cookie
		expectedExpires time.Time
		expectedExpired bool
	}{
		{
			name:   "session cookie",
			cookie: Cookie{Session: true, ExpirationDate: 1},
		},
		{
			name:   "no expiration date",
			cookie: Cookie{},
		},
		{
			name:            "fractional seconds",
			cookie:          Cookie{ExpirationDate: 1893456000.5},
			expectedExpires: time.Unix(1893456000, int64(500*time.Millisecond)).UTC(),
		},
		{
			name:            "expired",
			cookie:          Cookie{ExpirationDate: 1000},
			expectedExpires: time.Unix(1000, 0).UTC(),
			expectedExpired: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.True(t, tt.expectedExpires.Equal(tt.cookie.Expires()))
			assert.Equal(t, tt.expectedExpired, tt.cookie.IsExpired(now))
		})
	}
}

// TestCookie_URL tests the URL method.
func TestCookie_URL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://idp.example/account", Cookie{Domain: ".idp.example", Path: "/account", Secure: true}.URL().String())
	assert.Equal(t, "http://idp.example/", Cookie{Domain: "idp.example"}.URL().String())
}

// TestCookie_HTTPCookie tests the HTTPCookie method.
func TestCookie_HTTPCookie(t *testing.T) {
	t.Parallel()

	hostOnly := Cookie{
		Name:     "sid",
		Value:    "1",
		Domain:   "idp.example",
		Path:     "/",
		HostOnly: true,
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Strict",
	}.HTTPCookie()

	assert.Equal(t, "sid", hostOnly.Name)
	assert.Empty(t, hostOnly.Domain)
	assert.True(t, hostOnly.Secure)
	assert.True(t, hostOnly.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, hostOnly.SameSite)
	assert.True(t, hostOnly.Expires.IsZero())

	shared := Cookie{Name: "lang", Value: "en", Domain: ".idp.example", SameSite: "no_restriction"}.HTTPCookie()
	assert.Equal(t, ".idp.example", shared.Domain)
	assert.Equal(t, http.SameSiteNoneMode, shared.SameSite)

	assert.Equal(t, http.SameSiteDefaultMode, Cookie{SameSite: "unspecified"}.HTTPCookie().SameSite)
}
