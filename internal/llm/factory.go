package llm

import (
	"time"

	"quartermaster/internal/errors"
	"quartermaster/internal/logging"
)

// Factory resolves a provider name to a fully configured client. It has the
// same shape as Select but carries the application's LLM settings, so every
// call site gets the configured endpoint, model, timeout, and retry policy
// without threading them through.
type Factory func(provider, apiKey string) (Client, error)

// Settings is the client configuration a Factory applies. Zero values fall
// back to the client defaults.
type Settings struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int

	// OnUsage receives token counts per OpenAI call, for metrics.
	OnUsage func(inputTokens, outputTokens int)
	Logger  logging.Logger
}

// NewFactory builds a Factory over the settings. OpenAI clients come back
// configured and wrapped with the retry decorator; the deterministic client
// needs neither and passes through untouched.
func NewFactory(settings Settings) Factory {
	return func(provider, apiKey string) (Client, error) {
		client, err := Select(provider, apiKey,
			WithBaseURL(settings.BaseURL),
			WithModel(settings.Model),
			WithTimeout(settings.Timeout),
			WithUsageCallback(settings.OnUsage),
		)
		if err != nil {
			return nil, err
		}
		if client.Provider() != ProviderOpenAI {
			return client, nil
		}

		retry := errors.DefaultRetryConfig()
		if settings.MaxRetries > 0 {
			retry.MaxAttempts = settings.MaxRetries
		}
		return WithRetry(client, retry, settings.Logger), nil
	}
}
