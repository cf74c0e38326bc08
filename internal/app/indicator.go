package app

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/oshokin/implicit-session/internal/logger"
)

const (
	// indicatorInterval is how often the spinner advances.
	indicatorInterval = 200 * time.Millisecond
	// indicatorSpinnerType selects the spinner glyphs.
	indicatorSpinnerType = 14
)

// startIndicator shows a spinner on stderr until the returned function is called.
// The spinner is hidden when the log level is above info, like other progress output.
func startIndicator(ctx context.Context, description string) (stop func()) {
	if logger.Level() > zap.InfoLevel {
		return func() {}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(indicatorSpinnerType),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionClearOnFinish(),
	)

	var (
		done = make(chan struct{})
		wg   sync.WaitGroup
	)

	wg.Add(1)

	go func() {
		defer wg.Done()

		ticker := time.NewTicker(indicatorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	var once sync.Once

	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()

			_ = bar.Finish()
		})
	}
}
