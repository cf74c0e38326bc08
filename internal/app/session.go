package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/implicit-session/internal/client/replay"
	"github.com/oshokin/implicit-session/internal/config"
	"github.com/oshokin/implicit-session/internal/logger"
	"github.com/oshokin/implicit-session/internal/session"
	"github.com/oshokin/implicit-session/internal/utils"
)

// Output formats of the session show command.
const (
	FormatSummary = "summary"
	FormatJSON    = "json"
	FormatYAML    = "yaml"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// ExecuteSessionShowCommand prints the saved session in the requested format.
func ExecuteSessionShowCommand(ctx context.Context, cfg *config.Config, format string) {
	record, err := session.Load(cfg.SessionFile)
	if err != nil {
		logger.Fatalf(ctx, "Failed to load session: %v", err)
	}

	if err = renderSession(os.Stdout, cfg.SessionFile, record, format, time.Now()); err != nil {
		logger.Fatalf(ctx, "Failed to print session: %v", err)
	}
}

// ExecuteSessionProbeCommand sends one request with the saved session and reports the response.
func ExecuteSessionProbeCommand(ctx context.Context, cfg *config.Config, targetURL string, bearer bool) {
	record, err := session.Load(cfg.SessionFile)
	if err != nil {
		logger.Fatalf(ctx, "Failed to load session: %v", err)
	}

	client, err := replay.NewClient(record, replay.Options{
		UserAgent:    cfg.UserAgent,
		ExtraHeaders: cfg.ExtraHeaders,
		Bearer:       bearer,
	})
	if err != nil {
		logger.Fatalf(ctx, "Failed to prepare session client: %v", err)
	}

	if err = probeSession(ctx, client, targetURL); err != nil {
		logger.Fatalf(ctx, "Probe failed: %v", err)
	}
}

func probeSession(ctx context.Context, client replay.Client, targetURL string) error {
	result, err := client.Probe(ctx, targetURL)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Probe finished",
		"url", result.URL,
		"status", result.Status,
		"cookies_sent", result.CookiesSent,
		"duration", result.Duration.Round(time.Millisecond).String())

	if result.FinalURL != result.URL {
		logger.Infof(ctx, "Redirected to %s", result.FinalURL)
	}

	return nil
}

func renderSession(w io.Writer, path string, record *session.Record, format string, now time.Time) error {
	switch strings.ToLower(format) {
	case "", FormatSummary:
		return renderSummary(w, path, record, now)
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(record)
	case FormatYAML:
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}

		data, err = jsonToYAML(data)
		if err != nil {
			return err
		}

		_, err = w.Write(data)

		return err
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownFormat, format)
	}
}

func renderSummary(w io.Writer, path string, record *session.Record, now time.Time) error {
	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(table, "Session file:\t%s\n", path)

	if !record.CapturedAt.IsZero() {
		fmt.Fprintf(table, "Captured:\t%s (%s)\n",
			record.CapturedAt.Format(time.DateTime), humanize.RelTime(record.CapturedAt, now, "ago", "from now"))
	}

	fmt.Fprintf(table, "Cookies:\t%d\n", len(record.Cookies))

	for _, cookie := range record.Cookies {
		fmt.Fprintf(table, "  %s\t%s%s\t%s\t%s\n",
			cookie.Name, cookie.Domain, cookie.Path, utils.MaskSecret(cookie.Value), cookieExpiry(cookie, now))
	}

	if record.LocalStorage == nil {
		fmt.Fprintf(table, "Local storage:\tnot captured\n")
	} else {
		names := utils.Map(record.LocalStorage, func(item session.LocalStorageItem) string { return item.Name })
		fmt.Fprintf(table, "Local storage:\t%d (%s)\n", len(names), strings.Join(names, ", "))
	}

	if token := record.Token; token != nil {
		fmt.Fprintf(table, "Token:\t%s %s\n", token.Type(), utils.MaskSecret(token.AccessToken))

		if !token.Expiry.IsZero() {
			fmt.Fprintf(table, "Token expires:\t%s\n", humanize.RelTime(token.Expiry, now, "ago", "from now"))
		}
	}

	return table.Flush()
}

func cookieExpiry(cookie session.Cookie, now time.Time) string {
	expires := cookie.Expires()

	switch {
	case expires.IsZero():
		return "session"
	case expires.Before(now):
		return "expired " + humanize.RelTime(expires, now, "ago", "from now")
	default:
		return "expires " + humanize.RelTime(expires, now, "ago", "from now")
	}
}

// jsonToYAML re-encodes a JSON document as block-style YAML, keeping key order.
func jsonToYAML(data []byte) ([]byte, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	clearStyles(&document)

	return yaml.Marshal(&document)
}

func clearStyles(node *yaml.Node) {
	node.Style = 0

	for _, child := range node.Content {
		clearStyles(child)
	}
}
