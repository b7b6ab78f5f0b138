// Package retry runs an operation a bounded number of times with exponential back-off.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/spotcheck/pkg/logger"
)

// Defaults mirror the synthetic task creator's needs: a handful of attempts
// spaced about a second apart.
const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 10 * time.Second
)

// ErrExhausted is wrapped into the error returned when every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Config holds the parameters for the retry strategy.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Logger      logger.Logger
}

// Do executes fn until it succeeds, the attempts run out, or ctx is done.
// The returned error wraps both ErrExhausted and the last failure.
func (c Config) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	delay := c.BaseDelay
	if delay <= 0 {
		delay = defaultBaseDelay
	}
	maxDelay := c.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.Logger != nil {
			c.Logger.Debug(ctx, "running operation",
				logger.String("operation", operation),
				logger.Int("attempt", attempt),
				logger.Int("maxAttempts", attempts),
			)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", operation, ctx.Err())
		}
		if attempt == attempts {
			break
		}

		if c.Logger != nil {
			c.Logger.Warn(ctx, "operation failed, retrying",
				logger.String("operation", operation),
				logger.Int("attempt", attempt),
				logger.Duration("backoff", delay),
				logger.Error(lastErr),
			)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", operation, ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w: %w", operation, attempts, ErrExhausted, lastErr)
}
