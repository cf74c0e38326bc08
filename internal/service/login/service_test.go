package login_test

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/oshokin/implicit-session/internal/browser"
	"github.com/oshokin/implicit-session/internal/oauth"
	"github.com/oshokin/implicit-session/internal/service/login"
	mock_login "github.com/oshokin/implicit-session/internal/service/login/mocks"
	"github.com/oshokin/implicit-session/internal/session"
	mock_session "github.com/oshokin/implicit-session/internal/session/mocks"
)

const (
	testAuthURL     = "https://idp.example/auth"
	testRedirectURL = "https://app.example/cb"
	testState       = "state-123"
	testPath        = "/tmp/session.json"
)

var errTestBrowser = errors.New("net::ERR_CONNECTION_REFUSED")

type harness struct {
	browser   *mock_login.MockBrowser
	capturer  *mock_login.MockCapturer
	persister *mock_login.MockPersister
	done      chan struct{}
	handler   func(browser.Request)
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	h := &harness{
		browser:   mock_login.NewMockBrowser(ctrl),
		capturer:  mock_login.NewMockCapturer(ctrl),
		persister: mock_login.NewMockPersister(ctrl),
		done:      make(chan struct{}),
	}

	h.browser.EXPECT().
		OnRequest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, handler func(browser.Request)) error {
			h.handler = handler

			return nil
		}).
		AnyTimes()
	h.browser.EXPECT().Done().Return(h.done).AnyTimes()

	return h
}

func (h *harness) emit(rawURL string) {
	h.handler(browser.Request{URL: rawURL, Headers: map[string]string{"Referer": testAuthURL}})
}

func testOptions() login.Options {
	return login.Options{
		Authorization: oauth.AuthorizationParams{
			AuthURL:     testAuthURL,
			RedirectURL: testRedirectURL,
			ClientID:    "abc123",
			Scopes:      []string{"read", "write"},
			State:       testState,
		},
	}
}

func testRecord() *session.Record {
	return &session.Record{
		Cookies: []session.Cookie{{Name: "sid", Value: "1", Domain: "idp.example", Path: "/"}},
	}
}

func redirectWith(fragment string) string {
	return testRedirectURL + "#" + fragment
}

// TestServiceImpl_Run tests the Run method.
//
//nolint:funlen // Table covers every terminal path of the state machine.
func TestServiceImpl_Run(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		timeout       time.Duration
		navigate      func(h *harness) func(context.Context, string) error
		setup         func(h *harness)
		expectedErr   error
		expectedToken string
	}{
		{
			name: "three matching requests persist once",
			navigate: func(h *harness) func(context.Context, string) error {
				return func(_ context.Context, _ string) error {
					h.emit("https://idp.example/login")

					for range 3 {
						h.emit(redirectWith("access_token=tok&token_type=Bearer&state=" + testState))
					}

					return nil
				}
			},
			setup: func(h *harness) {
				h.capturer.EXPECT().Capture(gomock.Any(), gomock.Any()).Return(testRecord(), nil).Times(1)
				h.persister.EXPECT().Persist(gomock.Any(), gomock.Any()).Return(testPath, nil).Times(1)
			},
			expectedToken: "tok",
		},
		{
			name: "redirect without state is accepted",
			navigate: func(h *harness) func(context.Context, string) error {
				return func(_ context.Context, _ string) error {
					h.emit(testRedirectURL + "?code=ignored")

					return nil
				}
			},
			setup: func(h *harness) {
				h.capturer.EXPECT().Capture(gomock.Any(), gomock.Any()).Return(testRecord(), nil)
				h.persister.EXPECT().Persist(gomock.Any(), gomock.Any()).Return(testPath, nil)
			},
		},
		{
			name: "provider error still captures",
			navigate: func(h *harness) func(context.Context, string) error {
				return func(_ context.Context, _ string) error {
					h.emit(testRedirectURL + "?error=access_denied&state=" + testState)

					return nil
				}
			},
			setup: func(h *harness) {
				h.capturer.EXPECT().Capture(gomock.Any(), gomock.Any()).Return(testRecord(), nil)
				h.persister.EXPECT().Persist(gomock.Any(), gomock.Any()).Return(testPath, nil)
			},
		},
		{
			name: "navigation error after the redirect is ignored",
			navigate: func(h *harness) func(context.Context, string) error {
				return func(_ context.Context, _ string) error {
					h.emit(redirectWith("access_token=tok&state=" + testState))

					return errTestBrowser
				}
			},
			setup: func(h *harness) {
				h.capturer.EXPECT().Capture(gomock.Any(), gomock.Any()).Return(testRecord(), nil)
				h.persister.EXPECT().Persist(gomock.Any(), gomock.Any()).Return(testPath, nil)
			},
			expectedToken: "tok",
		},
		{
			name: "state mismatch",
			navigate: func(h *harness) func(context.Context, string) error {
				return func(_ context.Context, _ string) error {
					h.emit(redirectWith("access_token=tok&state=forged"))

					return nil
				}
			},
			expectedErr: login.ErrStateMismatch,
		},
		{
			name: "navigation error",
			navigate: func(h *harness) func(context.Context, string) error {
				return func(_ context.Context, _ string) error {
					h.emit("https://idp.example/favicon.ico")

					return errTestBrowser
				}
			},
			expectedErr: login.ErrNavigation,
		},
		{
			name: "capture error",
			navigate: func(h *harness) func(context.Context, string) error {
				return func(_ context.Context, _ string) error {
					h.emit(redirectWith("state=" + testState))

					return nil
				}
			},
			setup: func(h *harness) {
				h.capturer.EXPECT().Capture(gomock.Any(), gomock.Any()).Return(nil, session.ErrReadCookies)
			},
			expectedErr: login.ErrCapture,
		},
		{
			name: "persist error",
			navigate: func(h *harness) func(context.Context, string) error {
				return func(_ context.Context, _ string) error {
					h.emit(redirectWith("state=" + testState))

					return nil
				}
			},
			setup: func(h *harness) {
				h.capturer.EXPECT().Capture(gomock.Any(), gomock.Any()).Return(testRecord(), nil)
				h.persister.EXPECT().Persist(gomock.Any(), gomock.Any()).Return("", session.ErrWriteSession)
			},
			expectedErr: login.ErrPersist,
		},
		{
			name: "browser closed",
			navigate: func(h *harness) func(context.Context, string) error {
				return func(_ context.Context, _ string) error {
					close(h.done)

					return nil
				}
			},
			expectedErr: login.ErrBrowserClosed,
		},
		{
			name:    "timeout while waiting for redirect",
			timeout: 20 * time.Millisecond,
			navigate: func(_ *harness) func(context.Context, string) error {
				return func(_ context.Context, _ string) error {
					return nil
				}
			},
			expectedErr: login.ErrLoginTimeout,
		},
		{
			name:    "capture finishing after the timeout is kept",
			timeout: 20 * time.Millisecond,
			navigate: func(h *harness) func(context.Context, string) error {
				return func(_ context.Context, _ string) error {
					h.emit(redirectWith("access_token=tok&state=" + testState))

					return nil
				}
			},
			setup: func(h *harness) {
				h.capturer.EXPECT().
					Capture(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, _ string) (*session.Record, error) {
						select {
						case <-ctx.Done():
							return nil, ctx.Err()
						case <-time.After(100 * time.Millisecond):
							return testRecord(), nil
						}
					})
				h.persister.EXPECT().
					Persist(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, _ *session.Record) (string, error) {
						return testPath, ctx.Err()
					})
			},
			expectedToken: "tok",
		},
		{
			name:    "timeout while navigating",
			timeout: 20 * time.Millisecond,
			navigate: func(_ *harness) func(context.Context, string) error {
				return func(ctx context.Context, _ string) error {
					<-ctx.Done()

					return ctx.Err()
				}
			},
			expectedErr: login.ErrLoginTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			h.browser.EXPECT().Navigate(gomock.Any(), gomock.Any()).DoAndReturn(tt.navigate(h))

			if tt.setup != nil {
				tt.setup(h)
			}

			opts := testOptions()
			opts.Timeout = tt.timeout

			service, err := login.NewService(h.browser, h.capturer, h.persister, opts)
			require.NoError(t, err)
			assert.Equal(t, login.StateIdle, service.State())

			result, err := service.Run(context.Background())

			assert.Equal(t, login.StateTerminated, service.State())

			if tt.expectedErr != nil {
				require.Error(t, err)
				require.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, result)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, testPath, result.Path)
			require.NotNil(t, result.Record)

			if tt.expectedToken == "" {
				assert.Nil(t, result.Record.Token)

				return
			}

			require.NotNil(t, result.Record.Token)
			assert.Equal(t, tt.expectedToken, result.Record.Token.AccessToken)
		})
	}
}

// TestServiceImpl_Run_CapturesAuthorizationURL tests that cookies are read for the authorization URL.
func TestServiceImpl_Run_CapturesAuthorizationURL(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	var navigatedTo, capturedFor string

	h.browser.EXPECT().Navigate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u string) error {
		navigatedTo = u

		h.emit(redirectWith("state=" + testState))

		return nil
	})
	h.capturer.EXPECT().Capture(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, targetURL string) (*session.Record, error) {
			capturedFor = targetURL

			return testRecord(), nil
		})
	h.persister.EXPECT().Persist(gomock.Any(), gomock.Any()).Return(testPath, nil)

	service, err := login.NewService(h.browser, h.capturer, h.persister, testOptions())
	require.NoError(t, err)

	_, err = service.Run(context.Background())
	require.NoError(t, err)

	expected := "https://idp.example/auth?redirect_uri=https%3A%2F%2Fapp.example%2Fcb" +
		"&client_id=abc123&scope=read+write&state=" + testState + "&response_type=token"

	assert.Equal(t, expected, service.AuthorizationURL())
	assert.Equal(t, expected, navigatedTo)
	assert.Equal(t, expected, capturedFor)
}

// TestServiceImpl_Run_GeneratedState tests that a random state is generated and verified.
func TestServiceImpl_Run_GeneratedState(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	h.browser.EXPECT().Navigate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u string) error {
		parsed, err := url.Parse(u)
		if err != nil {
			return err
		}

		h.emit(redirectWith("state=" + parsed.Query().Get("state")))

		return nil
	})
	h.capturer.EXPECT().Capture(gomock.Any(), gomock.Any()).Return(testRecord(), nil)
	h.persister.EXPECT().Persist(gomock.Any(), gomock.Any()).Return(testPath, nil)

	opts := testOptions()
	opts.Authorization.State = ""

	service, err := login.NewService(h.browser, h.capturer, h.persister, opts)
	require.NoError(t, err)

	result, err := service.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result.Redirect)
	assert.NotEmpty(t, result.Redirect.State)
	assert.NotEqual(t, "RANDOM", result.Redirect.State)
	assert.Contains(t, service.AuthorizationURL(), "state="+result.Redirect.State)
}

// TestServiceImpl_Run_PartialLocalStorage tests that a local storage failure still saves cookies.
func TestServiceImpl_Run_PartialLocalStorage(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	source := mock_session.NewMockBrowsingSession(gomock.NewController(t))

	source.EXPECT().Cookies(gomock.Any(), gomock.Any()).Return(testRecord().Cookies, nil)
	source.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("SecurityError"))

	h.browser.EXPECT().Navigate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, _ string) error {
		h.emit(redirectWith("access_token=tok&state=" + testState))

		return nil
	})

	path := filepath.Join(t.TempDir(), "session.json")

	service, err := login.NewService(h.browser, session.NewCapturer(source, true), session.NewFilePersister(path), testOptions())
	require.NoError(t, err)

	result, err := service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, result.Path)

	loaded, err := session.Load(path)
	require.NoError(t, err)
	assert.Equal(t, testRecord().Cookies, loaded.Cookies)
	assert.Empty(t, loaded.LocalStorage)
	require.NotNil(t, loaded.Token)
	assert.Equal(t, "tok", loaded.Token.AccessToken)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestServiceImpl_Run_Twice tests that a service runs a single attempt.
func TestServiceImpl_Run_Twice(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.browser.EXPECT().Navigate(gomock.Any(), gomock.Any()).Return(errTestBrowser)

	service, err := login.NewService(h.browser, h.capturer, h.persister, testOptions())
	require.NoError(t, err)

	_, err = service.Run(context.Background())
	require.ErrorIs(t, err, login.ErrNavigation)

	_, err = service.Run(context.Background())
	require.ErrorIs(t, err, login.ErrAlreadyStarted)
}

// TestServiceImpl_Run_Canceled tests that cancellation by the caller is not reported as a timeout.
func TestServiceImpl_Run_Canceled(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())

	h.browser.EXPECT().Navigate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, _ string) error {
		cancel()

		return nil
	})

	service, err := login.NewService(h.browser, h.capturer, h.persister, testOptions())
	require.NoError(t, err)

	_, err = service.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, login.ErrLoginTimeout)
}

// TestServiceImpl_Run_SubscribeError tests a failing request subscription.
func TestServiceImpl_Run_SubscribeError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	b := mock_login.NewMockBrowser(ctrl)
	b.EXPECT().OnRequest(gomock.Any(), gomock.Any()).Return(browser.ErrNotReady)

	service, err := login.NewService(b, mock_login.NewMockCapturer(ctrl), mock_login.NewMockPersister(ctrl), testOptions())
	require.NoError(t, err)

	_, err = service.Run(context.Background())
	require.ErrorIs(t, err, login.ErrNavigation)
	require.ErrorIs(t, err, browser.ErrNotReady)
}

// TestServiceImpl_Run_InvalidAuthorization tests that a bad authorization URL fails before the browser is used.
func TestServiceImpl_Run_InvalidAuthorization(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	opts := testOptions()
	opts.Authorization.AuthURL = "/relative"

	service, err := login.NewService(
		mock_login.NewMockBrowser(ctrl),
		mock_login.NewMockCapturer(ctrl),
		mock_login.NewMockPersister(ctrl),
		opts,
	)
	require.NoError(t, err)

	_, err = service.Run(context.Background())
	require.ErrorIs(t, err, oauth.ErrInvalidConfig)
}

// TestNewService tests the NewService function.
func TestNewService(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	opts := testOptions()
	opts.Authorization.RedirectURL = "not a url"

	service, err := login.NewService(
		mock_login.NewMockBrowser(ctrl),
		mock_login.NewMockCapturer(ctrl),
		mock_login.NewMockPersister(ctrl),
		opts,
	)

	require.Error(t, err)
	assert.Nil(t, service)
}

// TestState_String tests the String method of State.
func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state    login.State
		expected string
	}{
		{login.StateIdle, "idle"},
		{login.StateLoading, "loading"},
		{login.StateAwaitingRedirect, "awaiting-redirect"},
		{login.StateCapturing, "capturing"},
		{login.StateTerminated, "terminated"},
		{login.State(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}
