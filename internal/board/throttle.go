package board

import (
	"context"
	"time"

	"pttgrab/internal/logger"
	"pttgrab/internal/models"
)

// Throttled wraps a Board, sleeping the configured politeness delay before
// every remote call and retrying transient failures a bounded number of
// times with that same delay. Non-transient errors pass through untouched.
//
// The delay is deliberate backpressure against the remote service, applied
// uniformly to probes, searches and article fetches.
type Throttled struct {
	inner      Board
	log        *logger.Logger
	delay      time.Duration
	maxRetries int
}

// NewThrottled creates the politeness wrapper. maxRetries is the number of
// additional attempts after the first (so 2 means at most 3 calls).
func NewThrottled(inner Board, delay time.Duration, maxRetries int, log *logger.Logger) *Throttled {
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Throttled{
		inner:      inner,
		log:        log,
		delay:      delay,
		maxRetries: maxRetries,
	}
}

// LatestIndex implements Board.
func (t *Throttled) LatestIndex(ctx context.Context, board string) (int, error) {
	var idx int

	err := t.do(ctx, "latest-index", func() error {
		var callErr error

		idx, callErr = t.inner.LatestIndex(ctx, board)

		return callErr
	})

	return idx, err
}

// FetchArticle implements Board.
func (t *Throttled) FetchArticle(ctx context.Context, board string, index int) (*models.Article, error) {
	var art *models.Article

	err := t.do(ctx, "fetch-article", func() error {
		var callErr error

		art, callErr = t.inner.FetchArticle(ctx, board, index)

		return callErr
	})

	return art, err
}

// Search implements Board.
func (t *Throttled) Search(ctx context.Context, board string, mode SearchMode, query string, opts SearchOptions) ([]int, error) {
	var indices []int

	err := t.do(ctx, "search", func() error {
		var callErr error

		indices, callErr = t.inner.Search(ctx, board, mode, query, opts)

		return callErr
	})

	return indices, err
}

// do runs one remote call with the politeness pause and transient retries.
func (t *Throttled) do(ctx context.Context, op string, call func() error) error {
	var lastErr error

	for attempt := 1; attempt <= t.maxRetries+1; attempt++ {
		if err := t.pause(ctx); err != nil {
			return err
		}

		err := call()
		if err == nil {
			return nil
		}

		lastErr = err

		if !IsTransient(err) {
			return err
		}

		if attempt <= t.maxRetries && t.log != nil {
			t.log.Debug("Retrying after transient failure",
				"op", op,
				"attempt", attempt,
				"error", err,
			)
		}
	}

	return lastErr
}

func (t *Throttled) pause(ctx context.Context) error {
	return Pause(ctx, t.delay)
}

// Pause sleeps the politeness delay, honoring cancellation. Gateways that
// issue several requests inside one call use it between those requests.
func Pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
