package browser

import (
	"strings"

	"github.com/go-rod/rod/lib/proto"

	"github.com/oshokin/implicit-session/internal/session"
)

// Cookie is a browser cookie as stored in the session record.
type Cookie = session.Cookie

// Request is an outgoing request observed in the page.
type Request struct {
	// URL is the full request URL including its fragment.
	URL string
	// Method is the HTTP method.
	Method string
	// Headers are the request headers as the browser reports them.
	Headers map[string]string
}

// requestFromEvent converts a CDP request event. CDP reports the fragment separately.
func requestFromEvent(e *proto.NetworkRequestWillBeSent) Request {
	if e == nil || e.Request == nil {
		return Request{}
	}

	headers := make(map[string]string, len(e.Request.Headers))
	for name, value := range e.Request.Headers {
		headers[name] = value.String()
	}

	return Request{
		URL:     joinFragment(e.Request.URL, e.Request.URLFragment),
		Method:  e.Request.Method,
		Headers: headers,
	}
}

// joinFragment appends fragment to rawURL unless rawURL already carries one.
// The fragment is expected to include its leading '#'.
func joinFragment(rawURL, fragment string) string {
	if fragment == "" || strings.Contains(rawURL, "#") {
		return rawURL
	}

	if !strings.HasPrefix(fragment, "#") {
		fragment = "#" + fragment
	}

	return rawURL + fragment
}

// cookieFromProto converts a CDP cookie into the layout of the session file.
func cookieFromProto(cookie *proto.NetworkCookie) Cookie {
	if cookie == nil {
		return Cookie{}
	}

	result := Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Domain:   cookie.Domain,
		Path:     cookie.Path,
		HostOnly: !strings.HasPrefix(cookie.Domain, "."),
		Secure:   cookie.Secure,
		HTTPOnly: cookie.HTTPOnly,
		Session:  cookie.Session,
		SameSite: string(cookie.SameSite),
	}

	if !cookie.Session && cookie.Expires > 0 {
		result.ExpirationDate = float64(cookie.Expires)
	}

	return result
}
