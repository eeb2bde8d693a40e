package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/cozy-corner/library-lending/internal/eventstore"
)

const (
	defaultMaxAttempts = 5
	baseRetryDelay     = 10 * time.Millisecond
	retryJitterFactor  = 0.3
)

// retryOnConflict runs fn until it succeeds, fails with a non-retryable
// error, or maxAttempts is reached. Only eventstore.ErrConcurrencyConflict
// is retried: the caller's fn reloads and replays the stream on each attempt,
// so a retry re-evaluates the command against the winner's state.
//
// Backoff doubles per attempt from baseRetryDelay, with jitter to keep
// conflicting writers from re-colliding in lockstep.
func retryOnConflict(ctx context.Context, maxAttempts int, fn func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<(attempt-1))
			jitter := time.Duration(rand.Float64() * float64(delay) * retryJitterFactor) //nolint:gosec // jitter does not need crypto randomness
			select {
			case <-time.After(delay + jitter):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, eventstore.ErrConcurrencyConflict) {
			return lastErr
		}
	}

	return lastErr
}
