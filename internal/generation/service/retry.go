package service

import (
	"context"
	"errors"
	"time"

	"github.com/pageforge-dev/pageforge-backend/internal/generation/llm"
)

// AttemptFunc is one upstream call. The retry loop owns nothing outside
// itself: admission has already been reserved once at the call site and is
// never re-checked or re-recorded here.
type AttemptFunc func(ctx context.Context) (string, error)

// withRateLimitRetry executes attempt, retrying only rate-limited failures
// with a linearly growing delay (base, 2*base, ...). Any other error class
// propagates immediately; after maxRetries the last rate-limit error is
// returned.
func withRateLimitRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, attempt AttemptFunc) (string, error) {
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			delay := time.Duration(i) * baseDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := attempt(ctx)
		if err == nil {
			return text, nil
		}
		if !isRateLimited(err) {
			return "", err
		}

		lastErr = err
		recordUpstreamRetry()
	}

	return "", lastErr
}

func isRateLimited(err error) bool {
	var apiErr *llm.APIError
	return errors.As(err, &apiErr) && apiErr.IsRateLimited()
}
