package http

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/oshokin/implicit-session/internal/config"
	"github.com/oshokin/implicit-session/internal/logger"
	"github.com/oshokin/implicit-session/internal/utils"
)

// ErrNilRequest indicates that the HTTP request is nil.
var ErrNilRequest = errors.New("request is nil")

var (
	// credentialHeaders are header prefixes whose values carry session credentials.
	//
	//nolint:gochecknoglobals // Read-only lookup table.
	credentialHeaders = [][]byte{
		[]byte("cookie:"),
		[]byte("set-cookie:"),
		[]byte("authorization:"),
	}

	// credentialParams are query parameters that carry tokens or codes.
	//
	//nolint:gochecknoglobals // Read-only lookup table.
	credentialParams = []string{"access_token", "id_token", "refresh_token", "code", "client_secret"}
)

// dumpSeparator ends the header block of an HTTP dump.
var dumpSeparator = []byte("\r\n\r\n") //nolint:gochecknoglobals // Read-only constant bytes.

// LogTransport is a http.RoundTripper that writes every replayed exchange to the debug log.
// Credentials in headers and query parameters are masked before logging.
// Nothing is logged, and no dump is taken, unless the debug level is enabled.
type LogTransport struct {
	// next is the underlying HTTP round tripper.
	next http.RoundTripper
	// maxDumpLength caps each request and response dump.
	maxDumpLength int
}

// NewLogTransport wraps next with debug logging.
// A non-positive maxDumpLength means config.DefaultMaxLogLength.
func NewLogTransport(next http.RoundTripper, maxDumpLength int) http.RoundTripper {
	if maxDumpLength <= 0 {
		maxDumpLength = config.DefaultMaxLogLength
	}

	return &LogTransport{
		next:          next,
		maxDumpLength: maxDumpLength,
	}
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LogTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	if !logger.IsDebugLevel() {
		return t.next.RoundTrip(req)
	}

	ctx := req.Context()
	target := maskURL(req.URL)
	requestDump := t.dump(httputil.DumpRequestOut(req, true))
	startTime := time.Now()

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		logger.DebugKV(ctx, "HTTP request failed",
			"method", req.Method,
			"url", target,
			"duration", time.Since(startTime).String(),
			"error", err)

		return nil, err
	}

	fields := []any{
		"method", req.Method,
		"url", target,
		"status", resp.StatusCode,
		"duration", time.Since(startTime).String(),
	}

	if location := resp.Header.Get("Location"); location != "" {
		fields = append(fields, "location", maskRawURL(location))
	}

	fields = append(fields,
		"request", requestDump,
		"response", t.dump(httputil.DumpResponse(resp, utils.IsTextContentType(resp.Header.Get("Content-Type")))))

	logger.DebugKV(ctx, "HTTP exchange", fields...)

	return resp, nil
}

func (t *LogTransport) dump(data []byte, err error) string {
	if err != nil {
		return "dump failed: " + err.Error()
	}

	data = redactHeaders(data)

	if len(data) > t.maxDumpLength {
		return string(data[:t.maxDumpLength]) + "... [truncated]"
	}

	return string(data)
}

// redactHeaders masks credential header values in an HTTP dump.
// Only the header block is inspected; the body is left untouched.
func redactHeaders(dump []byte) []byte {
	head, body, hasBody := bytes.Cut(dump, dumpSeparator)

	lines := bytes.Split(head, []byte("\r\n"))
	for i, line := range lines {
		lower := bytes.ToLower(line)

		for _, prefix := range credentialHeaders {
			if bytes.HasPrefix(lower, prefix) {
				value := bytes.TrimSpace(line[len(prefix):])
				lines[i] = append(line[:len(prefix):len(prefix)], " "+utils.MaskSecret(string(value))...)

				break
			}
		}
	}

	result := bytes.Join(lines, []byte("\r\n"))
	if hasBody {
		result = append(append(result, dumpSeparator...), body...)
	}

	return result
}

// maskURL renders u with credential query parameters masked and the fragment dropped.
func maskURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	masked := *u
	masked.Fragment, masked.RawFragment = "", ""

	if masked.RawQuery != "" {
		query := masked.Query()

		for _, name := range credentialParams {
			if values, ok := query[name]; ok {
				query[name] = utils.Map(values, utils.MaskSecret)
			}
		}

		masked.RawQuery = query.Encode()
	}

	return masked.String()
}

func maskRawURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return strings.Repeat("*", len(raw))
	}

	return maskURL(parsed)
}
