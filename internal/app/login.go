package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/implicit-session/internal/browser"
	"github.com/oshokin/implicit-session/internal/config"
	"github.com/oshokin/implicit-session/internal/logger"
	"github.com/oshokin/implicit-session/internal/oauth"
	"github.com/oshokin/implicit-session/internal/service/login"
	"github.com/oshokin/implicit-session/internal/session"
	"github.com/oshokin/implicit-session/internal/utils"
)

// DumpConfigEnv makes the login command print its effective configuration and exit.
const DumpConfigEnv = "IMPLICIT_SESSION_DUMP_CONFIG"

// loginBrowser is what a login needs from a launched browser.
type loginBrowser interface {
	login.Browser
	session.BrowsingSession
}

// ExecuteLoginCommand opens the authorization page in a browser, waits for the
// redirect and saves the captured session.
func ExecuteLoginCommand(ctx context.Context, cfg *config.Config) {
	if os.Getenv(DumpConfigEnv) != "" {
		if err := dumpConfig(os.Stdout, cfg); err != nil {
			logger.Fatalf(ctx, "Failed to dump configuration: %v", err)
		}

		return
	}

	if exists, err := utils.IsFileExist(cfg.SessionFile); err == nil && exists {
		logger.Warnf(ctx, "Session file %s already exists and will be replaced", cfg.SessionFile)
	}

	instance, err := browser.Launch(ctx, browser.Options{
		BinPath:      cfg.BrowserPath,
		Headless:     cfg.Headless,
		Proxy:        cfg.Proxy,
		UserAgent:    cfg.UserAgent,
		ExtraHeaders: cfg.ExtraHeaders,
	})
	if err != nil {
		logger.Fatalf(ctx, "Failed to start browser: %v", err)
	}

	result, err := runLogin(ctx, cfg, instance)

	// Close explicitly: Fatalf exits without running deferred calls.
	instance.Close(ctx)

	if err != nil {
		logger.Fatalf(ctx, "Login failed: %v", err)
	}

	reportLogin(ctx, result)
}

// runLogin performs one login attempt in b.
func runLogin(ctx context.Context, cfg *config.Config, b loginBrowser) (*login.Result, error) {
	params, err := authorizationParams(cfg)
	if err != nil {
		return nil, err
	}

	service, err := login.NewService(
		b,
		session.NewCapturer(b, cfg.CaptureLocalStorage),
		session.NewFilePersister(cfg.SessionFile),
		login.Options{
			Authorization: params,
			Timeout:       cfg.ParsedTimeout,
		})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Log in using the browser window, the session is saved as soon as the provider redirects back")
	logger.Debugf(ctx, "Authorization request state: %s", utils.MaskSecret(params.State))

	stopIndicator := startIndicator(ctx, "Waiting for login")
	defer stopIndicator()

	return service.Run(ctx)
}

func authorizationParams(cfg *config.Config) (oauth.AuthorizationParams, error) {
	state, err := oauth.NewState()
	if err != nil {
		return oauth.AuthorizationParams{}, err
	}

	params := oauth.AuthorizationParams{
		AuthURL:     cfg.Endpoint.AuthURL,
		RedirectURL: cfg.RedirectURL,
		ClientID:    cfg.ClientID,
		Scopes:      cfg.Scopes,
		State:       state,
		Prompt:      cfg.Prompt,
	}

	if cfg.SendNonce {
		if params.Nonce, err = oauth.NewState(); err != nil {
			return oauth.AuthorizationParams{}, err
		}
	}

	return params, nil
}

func reportLogin(ctx context.Context, result *login.Result) {
	logger.Info(ctx, "Login completed successfully!")
	logger.Infof(ctx, "Saved %d cookies and %d local storage entries to %s",
		len(result.Record.Cookies), len(result.Record.LocalStorage), result.Path)

	if token := result.Record.Token; token != nil {
		if token.Expiry.IsZero() {
			logger.Infof(ctx, "Access token received (%s)", utils.MaskSecret(token.AccessToken))
		} else {
			logger.Infof(ctx, "Access token received (%s), expires %s",
				utils.MaskSecret(token.AccessToken), humanize.Time(token.Expiry))
		}
	}

	if result.Redirect != nil && result.Redirect.HasError() {
		logger.Warnf(ctx, "The provider redirected with an error: %s",
			strings.TrimSpace(result.Redirect.Error+" "+result.Redirect.ErrorDescription))
	}
}

// configDump is the effective configuration printed for diagnostics.
type configDump struct {
	AuthURL             string            `json:"auth_url"`
	RedirectURL         string            `json:"redirect_url"`
	ClientID            string            `json:"client_id"`
	Scopes              []string          `json:"scopes"`
	Prompt              string            `json:"prompt,omitempty"`
	SendNonce           bool              `json:"send_nonce"`
	SessionFile         string            `json:"session_file"`
	CaptureLocalStorage bool              `json:"capture_local_storage"`
	UserAgent           string            `json:"user_agent"`
	Proxy               string            `json:"proxy,omitempty"`
	BrowserPath         string            `json:"browser_path,omitempty"`
	Headless            bool              `json:"headless"`
	ExtraHeaders        map[string]string `json:"extra_headers,omitempty"`
	Timeout             string            `json:"timeout"`
	LogLevel            string            `json:"log_level"`
}

func dumpConfig(w io.Writer, cfg *config.Config) error {
	dump := configDump{
		AuthURL:             cfg.Endpoint.AuthURL,
		RedirectURL:         cfg.RedirectURL,
		ClientID:            cfg.ClientID,
		Scopes:              cfg.Scopes,
		Prompt:              cfg.Prompt,
		SendNonce:           cfg.SendNonce,
		SessionFile:         cfg.SessionFile,
		CaptureLocalStorage: cfg.CaptureLocalStorage,
		UserAgent:           cfg.UserAgent,
		Proxy:               cfg.Proxy,
		BrowserPath:         cfg.BrowserPath,
		Headless:            cfg.Headless,
		ExtraHeaders:        cfg.ExtraHeaders,
		Timeout:             cfg.ParsedTimeout.String(),
		LogLevel:            cfg.ParsedLogLevel.String(),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(dump); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	return nil
}
