package replay

//go:generate $MOCKGEN -source=client.go -destination=mocks/client_mock.go

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"

	"github.com/oshokin/implicit-session/internal/logger"
	"github.com/oshokin/implicit-session/internal/session"
	http_transport "github.com/oshokin/implicit-session/internal/transport/http"
)

// maxDrainedBodySize caps how much of a probe response body is read before closing it.
const maxDrainedBodySize = 1 << 20

var (
	// ErrNilRecord indicates that no session record was given.
	ErrNilRecord = errors.New("session record is nil")
	// ErrNoToken indicates that bearer authentication was requested but the session has no access token.
	ErrNoToken = errors.New("session has no access token")
)

// Client sends requests on behalf of a captured session.
type Client interface {
	// Probe issues a single GET request and reports how the server answered.
	Probe(ctx context.Context, targetURL string) (*ProbeResult, error)
}

// Options configures the replay client.
type Options struct {
	// UserAgent is sent with every request. Empty means the transport default.
	UserAgent string
	// ExtraHeaders are sent with every request, like the browser sent them during login.
	ExtraHeaders map[string]string
	// Bearer sends the captured access token in the Authorization header.
	Bearer bool
	// Timeout limits every request. Zero means the transport default.
	Timeout time.Duration
	// Transport is the base round tripper. Nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// ProbeResult describes the response to a probe.
type ProbeResult struct {
	// URL is the requested URL.
	URL string
	// FinalURL is the URL after redirects.
	FinalURL string
	// StatusCode is the HTTP status code of the final response.
	StatusCode int
	// Status is the HTTP status line of the final response.
	Status string
	// ContentType is the Content-Type of the final response.
	ContentType string
	// CookiesSent is the number of session cookies the jar attached to the request.
	CookiesSent int
	// Duration is how long the request took.
	Duration time.Duration
}

// ClientImpl implements Client.
type ClientImpl struct {
	httpClient *http.Client
	jar        http.CookieJar
}

// NewClient creates a client carrying the cookies (and optionally the token) of record.
// Expired cookies are left out.
func NewClient(record *session.Record, opts Options) (*ClientImpl, error) {
	if record == nil {
		return nil, ErrNilRecord
	}

	// Create a cookie jar that honors public suffix boundaries, like a browser does.
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	loadCookies(jar, record.Cookies, time.Now())

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = http_transport.DefaultUserAgent
	}

	var transport http.RoundTripper = http_transport.NewHeaderInjector(
		http_transport.NewLogTransport(base, 0),
		http_transport.BrowserHeaders{
			UserAgent: userAgent,
			Extra:     opts.ExtraHeaders,
		})

	if opts.Bearer {
		if record.Token == nil || record.Token.AccessToken == "" {
			return nil, ErrNoToken
		}

		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(record.Token),
			Base:   transport,
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = http_transport.DefaultTimeout
	}

	return &ClientImpl{
		httpClient: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   timeout,
		},
		jar: jar,
	}, nil
}

// Probe issues a single GET request to targetURL with the session attached.
// Any HTTP status is a successful probe; only transport failures are errors.
func (c *ClientImpl) Probe(ctx context.Context, targetURL string) (*ProbeResult, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	cookiesSent := len(c.jar.Cookies(request.URL))
	startTime := time.Now()

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close()

	//nolint:errcheck // Draining lets the connection be reused; the body itself is not needed.
	io.Copy(io.Discard, io.LimitReader(response.Body, maxDrainedBodySize))

	return &ProbeResult{
		URL:         targetURL,
		FinalURL:    response.Request.URL.String(),
		StatusCode:  response.StatusCode,
		Status:      response.Status,
		ContentType: response.Header.Get("Content-Type"),
		CookiesSent: cookiesSent,
		Duration:    time.Since(startTime),
	}, nil
}

func loadCookies(jar http.CookieJar, cookies []session.Cookie, now time.Time) {
	for _, cookie := range cookies {
		if cookie.Domain == "" {
			logger.Debugf(context.Background(), "Skipping cookie %s without a domain", cookie.Name)

			continue
		}

		if cookie.IsExpired(now) {
			logger.Debugf(context.Background(), "Skipping expired cookie %s for %s", cookie.Name, cookie.Domain)

			continue
		}

		jar.SetCookies(cookie.URL(), []*http.Cookie{cookie.HTTPCookie()})
	}
}
