package errors

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"quartermaster/internal/logging"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts  int           // retries after the first attempt (default 3)
	BaseDelay    time.Duration // base delay for exponential backoff (default 1s)
	MaxDelay     time.Duration // cap on the backoff delay (default 30s)
	JitterFactor float64       // randomization factor (default 0.25)
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.25,
	}
}

// RetryWithResult executes fn with exponential backoff, retrying only
// transient failures. Context cancellation stops the loop immediately.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, logger logging.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	logger = logging.OrNop(logger)

	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		default:
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("succeeded after %d attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !IsTransient(err) {
			return zero, err
		}
		if attempt == config.MaxAttempts {
			break
		}

		delay := backoff(attempt, config)
		logger.Debug("attempt %d failed (%v), retrying in %v", attempt+1, err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
		}
	}

	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func backoff(attempt int, config RetryConfig) time.Duration {
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}

	delay := float64(config.BaseDelay) * math.Pow(2, float64(attempt))
	if config.JitterFactor > 0 {
		jitter := delay * config.JitterFactor * (2*rand.Float64() - 1)
		delay += jitter
	}
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	if delay < 0 {
		delay = float64(config.BaseDelay)
	}
	return time.Duration(delay)
}
