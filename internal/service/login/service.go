package login

//go:generate $MOCKGEN -source=service.go -destination=mocks/service_mock.go

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/oshokin/implicit-session/internal/browser"
	"github.com/oshokin/implicit-session/internal/logger"
	"github.com/oshokin/implicit-session/internal/oauth"
	"github.com/oshokin/implicit-session/internal/session"
)

// seenHostsCacheSize bounds the set of request hosts already reported in the debug log.
const seenHostsCacheSize = 256

var (
	// ErrNavigation is returned when the browser cannot load the authorization URL.
	ErrNavigation = errors.New("failed to open authorization page")
	// ErrCapture is returned when the session cannot be read from the browser.
	ErrCapture = errors.New("failed to capture session")
	// ErrPersist is returned when the captured session cannot be saved.
	ErrPersist = errors.New("failed to save session")
	// ErrStateMismatch is returned when the redirect echoes a state other than the one sent.
	ErrStateMismatch = errors.New("state returned by the provider does not match")
	// ErrLoginTimeout is returned when the redirect does not arrive in time.
	ErrLoginTimeout = errors.New("login timeout exceeded")
	// ErrBrowserClosed is returned when the browser is closed before the redirect.
	ErrBrowserClosed = errors.New("browser was closed by user")
	// ErrAlreadyStarted is returned when Run is called more than once on a service.
	ErrAlreadyStarted = errors.New("login attempt already started")
)

// Browser is the browsing capability the login runs in.
type Browser interface {
	// Navigate loads url in the page.
	Navigate(ctx context.Context, url string) error
	// OnRequest subscribes handler to outgoing requests until ctx is done.
	OnRequest(ctx context.Context, handler func(browser.Request)) error
	// Done is closed when the browser goes away.
	Done() <-chan struct{}
}

// Capturer reads the session from the browser.
type Capturer interface {
	Capture(ctx context.Context, targetURL string) (*session.Record, error)
}

// Persister saves a captured session and returns where it was written.
type Persister interface {
	Persist(ctx context.Context, record *session.Record) (string, error)
}

// Service runs a login attempt.
type Service interface {
	// Run performs the login and returns once the session is saved or the attempt fails.
	Run(ctx context.Context) (*Result, error)
}

// Options configures a login attempt.
type Options struct {
	// Authorization describes the authorization request. A missing state is generated.
	Authorization oauth.AuthorizationParams
	// Timeout limits the wait for the redirect. Zero waits until ctx is done.
	Timeout time.Duration
}

// Result describes a successful login.
type Result struct {
	// Path is where the session was written.
	Path string
	// Record is the saved session.
	Record *session.Record
	// Redirect is what the provider sent on the redirect URI.
	Redirect *oauth.Redirect
}

type outcome struct {
	result *Result
	err    error
}

// ServiceImpl implements Service.
type ServiceImpl struct {
	browser   Browser
	capturer  Capturer
	persister Persister
	opts      Options
	matcher   *oauth.RedirectMatcher
	seenHosts *lru.Cache[string, struct{}]

	authorizationURL string
	expectedState    string

	started  atomic.Bool
	captured atomic.Bool
	state    atomic.Int32
	results  chan outcome
}

// NewService creates a login service.
func NewService(b Browser, capturer Capturer, persister Persister, opts Options) (*ServiceImpl, error) {
	matcher, err := oauth.NewRedirectMatcher(opts.Authorization.RedirectURL)
	if err != nil {
		return nil, err
	}

	seenHosts, err := lru.New[string, struct{}](seenHostsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create host cache: %w", err)
	}

	return &ServiceImpl{
		browser:   b,
		capturer:  capturer,
		persister: persister,
		opts:      opts,
		matcher:   matcher,
		seenHosts: seenHosts,
		results:   make(chan outcome, 1),
	}, nil
}

// State returns the current state of the attempt.
func (s *ServiceImpl) State() State {
	return State(s.state.Load())
}

// AuthorizationURL returns the URL the attempt navigates to. It is empty before Run.
func (s *ServiceImpl) AuthorizationURL() string {
	return s.authorizationURL
}

// Run opens the authorization page and waits for the redirect.
// The first request to the redirect URI triggers capture and persistence;
// later matching requests are ignored.
func (s *ServiceImpl) Run(ctx context.Context) (*Result, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}

	defer s.setState(StateTerminated)

	if err := s.prepare(); err != nil {
		return nil, err
	}

	// Capture runs under ctx; only the wait for the redirect is bounded by the timeout.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	waitCtx := ctx

	if s.opts.Timeout > 0 {
		var cancelTimeout context.CancelFunc

		waitCtx, cancelTimeout = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancelTimeout()
	}

	s.setState(StateLoading)

	// Subscribe first: the provider may redirect before the navigation settles.
	if err := s.browser.OnRequest(ctx, s.handleRequest(ctx)); err != nil {
		return nil, fmt.Errorf("%w: failed to observe requests: %w", ErrNavigation, err)
	}

	s.state.CompareAndSwap(int32(StateLoading), int32(StateAwaitingRedirect))

	logger.Infof(ctx, "Waiting for redirect to %s", s.matcher.Target())

	if err := s.browser.Navigate(waitCtx, s.authorizationURL); err != nil {
		if waitCtx.Err() != nil {
			return s.abort(s.contextError(waitCtx))
		}

		return s.abort(fmt.Errorf("%w: %w", ErrNavigation, err))
	}

	logger.Debug(ctx, "Authorization page loaded")

	select {
	case out := <-s.results:
		return out.result, out.err
	case <-s.browser.Done():
		return s.abort(ErrBrowserClosed)
	case <-waitCtx.Done():
		return s.abort(s.contextError(waitCtx))
	}
}

func (s *ServiceImpl) prepare() error {
	params := s.opts.Authorization

	if params.State == "" {
		state, err := oauth.NewState()
		if err != nil {
			return err
		}

		params.State = state
	}

	authorizationURL, err := oauth.BuildAuthorizationURL(params)
	if err != nil {
		return err
	}

	s.authorizationURL = authorizationURL
	s.expectedState = params.State

	return nil
}

// handleRequest returns the per-request callback. The match decision is made
// synchronously and capture runs in its own goroutine so later events keep flowing.
func (s *ServiceImpl) handleRequest(ctx context.Context) func(browser.Request) {
	return func(request browser.Request) {
		s.logHost(ctx, request.URL)

		if !s.matcher.Match(request.URL) {
			return
		}

		if !s.captured.CompareAndSwap(false, true) {
			logger.Debugf(ctx, "Ignoring repeated request to the redirect URI: %s", request.URL)

			return
		}

		s.setState(StateCapturing)
		logger.Info(ctx, "Redirect detected, capturing session")

		go func() {
			result, err := s.captureAndPersist(ctx, request.URL)
			s.results <- outcome{result: result, err: err}
		}()
	}
}

func (s *ServiceImpl) captureAndPersist(ctx context.Context, redirectURL string) (*Result, error) {
	redirect, err := oauth.ParseRedirect(redirectURL)
	if err != nil {
		logger.Warnf(ctx, "Could not parse redirect: %v", err)

		redirect = &oauth.Redirect{}
	}

	switch {
	case redirect.State == "":
		logger.Warn(ctx, "Redirect does not carry a state parameter, it cannot be verified")
	case redirect.State != s.expectedState:
		return nil, ErrStateMismatch
	}

	if redirect.HasError() {
		logger.Warnf(ctx, "Provider reported an error: %s %s", redirect.Error, redirect.ErrorDescription)
	}

	record, err := s.capturer.Capture(ctx, s.authorizationURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapture, err)
	}

	if redirect.Token != nil {
		record.Token = redirect.Token
	}

	path, err := s.persister.Persist(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	return &Result{
		Path:     path,
		Record:   record,
		Redirect: redirect,
	}, nil
}

// abort ends the attempt with cause unless capture has already started,
// in which case the capture outcome is returned instead.
func (s *ServiceImpl) abort(cause error) (*Result, error) {
	if s.captured.CompareAndSwap(false, true) {
		return nil, cause
	}

	out := <-s.results

	return out.result, out.err
}

func (s *ServiceImpl) contextError(ctx context.Context) error {
	if s.opts.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: waited for %v", ErrLoginTimeout, s.opts.Timeout)
	}

	return fmt.Errorf("login interrupted: %w", ctx.Err())
}

func (s *ServiceImpl) logHost(ctx context.Context, rawURL string) {
	if !logger.IsDebugLevel() {
		return
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return
	}

	if found, _ := s.seenHosts.ContainsOrAdd(parsed.Host, struct{}{}); !found {
		logger.Debugf(ctx, "Browser contacted new host: %s", parsed.Host)
	}
}

func (s *ServiceImpl) setState(state State) {
	s.state.Store(int32(state))
}
