package llm

import (
	"context"

	"quartermaster/internal/errors"
	"quartermaster/internal/logging"
)

// retryClient wraps a Client with bounded exponential-backoff retries for
// transient failures. Permanent errors pass through on the first attempt.
type retryClient struct {
	delegate Client
	config   errors.RetryConfig
	logger   logging.Logger
}

// WithRetry decorates delegate. A zero-value config picks up the defaults.
func WithRetry(delegate Client, config errors.RetryConfig, logger logging.Logger) Client {
	if delegate == nil {
		return nil
	}
	if config.MaxAttempts <= 0 {
		config = errors.DefaultRetryConfig()
	}
	return &retryClient{
		delegate: delegate,
		config:   config,
		logger:   logging.OrNop(logger),
	}
}

func (r *retryClient) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return errors.RetryWithResult(ctx, r.config, r.logger, func(ctx context.Context) (string, error) {
		return r.delegate.Generate(ctx, prompt, maxTokens)
	})
}

func (r *retryClient) Provider() string {
	return r.delegate.Provider()
}

var _ Client = (*retryClient)(nil)
