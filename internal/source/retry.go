package source

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// WithRetry runs fn until it succeeds, doubling the delay after each failure.
// A client error status other than 408 or 429 is returned at once.
func WithRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, logger *zap.Logger, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || !Retryable(err) {
			return err
		}
		logger.Warn("retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

// Retryable reports whether err may succeed on another attempt. Rejected
// requests such as a bad coin id or an invalid API key never do.
func Retryable(err error) bool {
	var status *StatusError
	if !errors.As(err, &status) {
		return true
	}
	switch {
	case status.Status == http.StatusRequestTimeout, status.Status == http.StatusTooManyRequests:
		return true
	case status.Status >= 400 && status.Status < 500:
		return false
	}
	return true
}
