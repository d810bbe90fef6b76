package utils

import (
	"fmt"
	"time"
)

// RetryConfig holds the parameters for an exponential back-off retry.
// Retries are reserved for out-of-search operations (storage connects,
// event publishing); a failed source inside a search is never retried,
// the caller re-invokes the search instead.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *Logger
}

// Do executes fn, doubling the delay after each failed attempt.
func (r *RetryConfig) Do(operationName string, fn func() error) error {
	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if attempt < r.MaxAttempts {
			r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v — retrying in %v",
				operationName, attempt, r.MaxAttempts, lastErr, delay)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, r.MaxAttempts, lastErr)
}
