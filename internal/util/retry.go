package util

import (
	"context"
	"log/slog"
	"time"
)

// Retry calls fn up to maxAttempts times with exponential backoff starting
// at baseDelay, logging each failed attempt at debug level. It returns nil
// on the first successful call, or the last error if all attempts fail.
// Context cancellation is respected between retries.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		slog.Debug("retrying after failure", "attempt", attempt, "delay", delay, "err", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
