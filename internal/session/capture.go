package session

//go:generate $MOCKGEN -source=capture.go -destination=mocks/capture_mock.go

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/implicit-session/internal/logger"
)

// localStorageScript enumerates local storage of the current page without modifying it.
const localStorageScript = `() => Object.keys(window.localStorage).map((name) => ({
	name: name,
	value: window.localStorage.getItem(name),
}))`

var (
	// ErrReadCookies is returned when the browser's cookie store cannot be queried.
	ErrReadCookies = errors.New("failed to read cookies")
	// ErrReadLocalStorage is reported when local storage cannot be enumerated.
	ErrReadLocalStorage = errors.New("failed to read local storage")
)

// BrowsingSession is the part of a live browser the capturer reads from.
type BrowsingSession interface {
	// Cookies returns the cookies that would be sent to any of the given URLs.
	Cookies(ctx context.Context, urls ...string) ([]Cookie, error)
	// Evaluate runs a read-only script in the current page and decodes its result into result.
	Evaluate(ctx context.Context, script string, result any) error
}

// Capturer builds a Record from a browsing session.
type Capturer struct {
	source              BrowsingSession
	captureLocalStorage bool
	now                 func() time.Time
}

// NewCapturer creates a Capturer. Local storage is read only when captureLocalStorage is set.
func NewCapturer(source BrowsingSession, captureLocalStorage bool) *Capturer {
	return &Capturer{
		source:              source,
		captureLocalStorage: captureLocalStorage,
		now:                 time.Now,
	}
}

// Capture reads cookies for targetURL and, if enabled, local storage, concurrently.
// It waits for both reads to settle. A cookie failure fails the capture;
// a local-storage failure is logged and leaves LocalStorage empty.
func (c *Capturer) Capture(ctx context.Context, targetURL string) (*Record, error) {
	var (
		group  errgroup.Group
		record = &Record{CapturedAt: c.now().UTC()}
	)

	group.Go(func() error {
		cookies, err := c.source.Cookies(ctx, targetURL)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrReadCookies, err)
		}

		if cookies == nil {
			cookies = []Cookie{}
		}

		record.Cookies = cookies

		logger.Debugf(ctx, "Read %d cookies for %s", len(cookies), targetURL)

		return nil
	})

	if c.captureLocalStorage {
		group.Go(func() error {
			items, err := c.readLocalStorage(ctx)
			if err != nil {
				logger.Warnf(ctx, "Saving session without local storage: %v", err)

				return nil
			}

			record.LocalStorage = items

			logger.Debugf(ctx, "Read %d local storage entries", len(items))

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return record, nil
}

func (c *Capturer) readLocalStorage(ctx context.Context) ([]LocalStorageItem, error) {
	var items []LocalStorageItem
	if err := c.source.Evaluate(ctx, localStorageScript, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadLocalStorage, err)
	}

	return items, nil
}
