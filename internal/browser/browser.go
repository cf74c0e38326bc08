package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/oshokin/implicit-session/internal/logger"
)

const (
	// browserSlowMotionDelay is the delay between browser actions for visibility during debugging.
	browserSlowMotionDelay = 200 * time.Millisecond

	// browserCheckInterval is how often the page is probed to notice a closed window.
	browserCheckInterval = 1 * time.Second

	// browserCleanupDelay is the delay to wait for Chrome to release file locks before cleanup.
	browserCleanupDelay = 500 * time.Millisecond

	// profileDirPattern is the pattern of the throwaway profile directory.
	profileDirPattern = "implicit-session-*"

	// ignoreCertificateErrorsFlag lets an intercepting proxy present its own certificate.
	ignoreCertificateErrorsFlag flags.Flag = "ignore-certificate-errors"
)

var (
	// ErrLaunch is returned when the browser process cannot be started or connected to.
	ErrLaunch = errors.New("failed to launch browser")
	// ErrNotReady is returned when an operation needs a page that does not exist.
	ErrNotReady = errors.New("browser page is not ready")
)

// Options configures the launched browser.
type Options struct {
	// BinPath is an explicit Chrome/Chromium binary. Empty means autodetect or download.
	BinPath string
	// Headless hides the browser window.
	Headless bool
	// Proxy is an optional proxy server in host:port form.
	Proxy string
	// UserAgent overrides the User-Agent header and navigator.userAgent.
	UserAgent string
	// ExtraHeaders are sent with every request of the page.
	ExtraHeaders map[string]string
}

// Instance is a launched browser with a single stealth page.
type Instance struct {
	opts    Options
	browser *rod.Browser
	page    *rod.Page
	// tempDir stores the temporary profile directory for cleanup.
	tempDir string

	done      chan struct{}
	closeOnce sync.Once
}

// Launch starts a browser with a fresh profile and opens an empty page.
// The caller must call Close.
func Launch(ctx context.Context, opts Options) (*Instance, error) {
	instance := &Instance{
		opts: opts,
		done: make(chan struct{}),
	}

	if err := instance.init(ctx); err != nil {
		instance.Close(ctx)

		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	go instance.watch(ctx)

	return instance, nil
}

//nolint:funlen // Launcher and page setup are sequential steps.
func (i *Instance) init(ctx context.Context) error {
	logger.Debug(ctx, "Initializing browser")

	// A fresh profile keeps sessions from earlier runs out of the capture.
	tempDir, err := os.MkdirTemp("", profileDirPattern)
	if err != nil {
		return fmt.Errorf("failed to create temporary user data directory: %w", err)
	}

	i.tempDir = tempDir

	logger.Debugf(ctx, "Using temporary profile directory: %s", tempDir)

	browserLauncher := launcher.New().
		Context(ctx).
		Headless(i.opts.Headless).
		UserDataDir(tempDir)

	switch chromePath, exists := launcher.LookPath(); {
	case i.opts.BinPath != "":
		logger.Debugf(ctx, "Using configured browser binary at: %s", i.opts.BinPath)
		browserLauncher = browserLauncher.Bin(i.opts.BinPath)
	case exists:
		logger.Debugf(ctx, "Using system Chrome installation at: %s", chromePath)
		browserLauncher = browserLauncher.Bin(chromePath)
	default:
		logger.Info(ctx, "System Chrome not found, downloading Chromium")
	}

	if i.opts.Proxy != "" {
		logger.Infof(ctx, "Using proxy %s, certificate errors will be ignored", i.opts.Proxy)

		browserLauncher = browserLauncher.
			Proxy(i.opts.Proxy).
			Set(ignoreCertificateErrorsFlag)
	}

	launcherURL, err := browserLauncher.Launch()
	if err != nil {
		return err
	}

	logger.Debugf(ctx, "Browser launched at: %s", launcherURL)

	browserInstance := rod.New().
		Context(ctx).
		ControlURL(launcherURL)

	// Enable trace and slow motion only in debug mode.
	if logger.IsDebugLevel() {
		logger.Debug(ctx, "Debug mode enabled - enabling browser trace and slow motion")

		browserInstance = browserInstance.
			Trace(true).
			SlowMotion(browserSlowMotionDelay)
	}

	if err = browserInstance.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	i.browser = browserInstance

	i.page, err = stealth.Page(i.browser)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}

	if i.opts.UserAgent != "" {
		err = i.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: i.opts.UserAgent})
		if err != nil {
			return fmt.Errorf("failed to set user agent: %w", err)
		}
	}

	if len(i.opts.ExtraHeaders) > 0 {
		if _, err = i.page.SetExtraHeaders(flattenHeaders(i.opts.ExtraHeaders)); err != nil {
			return fmt.Errorf("failed to set extra headers: %w", err)
		}
	}

	logger.Debug(ctx, "Browser initialized successfully with stealth mode")

	return nil
}

// Navigate loads url in the page. It returns when the initial navigation commits or fails.
func (i *Instance) Navigate(ctx context.Context, url string) error {
	if i.page == nil {
		return ErrNotReady
	}

	return i.page.Context(ctx).Navigate(url)
}

// OnRequest calls handler for every request the page is about to send,
// including redirects. The subscription is active when OnRequest returns
// and lasts until ctx is done or the browser closes.
// Handler is called sequentially and must not block.
func (i *Instance) OnRequest(ctx context.Context, handler func(Request)) error {
	if i.page == nil {
		return ErrNotReady
	}

	wait := i.page.Context(ctx).EachEvent(func(e *proto.NetworkRequestWillBeSent) {
		request := requestFromEvent(e)

		logger.Debugf(ctx, "Request: %s %s", request.Method, request.URL)

		handler(request)
	})

	go wait()

	return nil
}

// Done is closed when the browser window or process goes away.
func (i *Instance) Done() <-chan struct{} {
	return i.done
}

// Cookies returns the cookies the browser would send to any of urls.
func (i *Instance) Cookies(ctx context.Context, urls ...string) ([]Cookie, error) {
	if i.page == nil {
		return nil, ErrNotReady
	}

	cookies, err := i.page.Context(ctx).Cookies(urls)
	if err != nil {
		return nil, err
	}

	result := make([]Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		result = append(result, cookieFromProto(cookie))
	}

	return result, nil
}

// Evaluate runs script in the current page and decodes its JSON result into result.
func (i *Instance) Evaluate(ctx context.Context, script string, result any) error {
	if i.page == nil {
		return ErrNotReady
	}

	remote, err := i.page.Context(ctx).Eval(script)
	if err != nil {
		return err
	}

	return remote.Value.Unmarshal(result)
}

// Close shuts the browser down and removes the temporary profile.
func (i *Instance) Close(ctx context.Context) {
	i.markDone()

	if i.browser != nil {
		// Close browser and wait for it to fully terminate.
		if err := i.browser.Close(); err != nil {
			logger.Debugf(ctx, "Browser close error (expected): %v", err)
		}
	}

	// Clean up temporary profile directory.
	if i.tempDir != "" {
		// Give Chrome a moment to release file locks.
		time.Sleep(browserCleanupDelay)

		if err := os.RemoveAll(i.tempDir); err != nil {
			// This can fail on Windows or if Chrome hasn't fully exited.
			logger.Debugf(ctx, "Could not clean up temp directory %s: %v", i.tempDir, err)
		}
	}
}

// watch closes done once the page target is destroyed or stops answering.
func (i *Instance) watch(ctx context.Context) {
	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(i.browser); err != nil {
		logger.Debugf(ctx, "Target discovery is unavailable: %v", err)
	}

	targetID := i.page.TargetID

	go i.browser.Context(ctx).EachEvent(func(e *proto.TargetTargetDestroyed) bool {
		if e.TargetID != targetID {
			return false
		}

		logger.Debug(ctx, "Page target destroyed")
		i.markDone()

		return true
	})()

	ticker := time.NewTicker(browserCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-i.done:
			return
		case <-ticker.C:
			if !i.isAlive(ctx) {
				logger.Debug(ctx, "Browser stopped responding")
				i.markDone()

				return
			}
		}
	}
}

// isAlive checks if the page still answers.
func (i *Instance) isAlive(ctx context.Context) (alive bool) {
	defer func() {
		// Recover from panic if browser is dead.
		if r := recover(); r != nil {
			logger.Debugf(ctx, "Browser panic recovered: %v", r)

			alive = false
		}
	}()

	_, err := i.page.Info()

	return err == nil
}

func (i *Instance) markDone() {
	i.closeOnce.Do(func() {
		close(i.done)
	})
}

func flattenHeaders(headers map[string]string) []string {
	result := make([]string, 0, len(headers)*2)
	for name, value := range headers {
		result = append(result, name, value)
	}

	return result
}
