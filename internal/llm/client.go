// Package llm provides the justification text generators: a deterministic
// client used by default and in tests, and an OpenAI chat-completions
// client. Which one runs is a configuration decision made in Select, never
// a type switch at the call site.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider names accepted by Select.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
)

// Client generates text for a prompt. Implementations must be safe for
// concurrent use.
type Client interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	Provider() string
}

// ErrAPIKeyRequired reports that a provider needs an API key the caller did
// not supply. The planner maps it to a bad request.
type ErrAPIKeyRequired struct {
	ProviderName string
}

func (e *ErrAPIKeyRequired) Error() string {
	return fmt.Sprintf("API key required for %s. Please provide an API key.", e.ProviderName)
}

// Select returns the client for a provider name. Empty or "mock" selects
// the deterministic client. "openai" requires an API key, falling back to
// the OPENAI_API_KEY environment variable.
func Select(provider, apiKey string, opts ...OpenAIOption) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderMock:
		return NewDeterministic(), nil
	case ProviderOpenAI:
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, &ErrAPIKeyRequired{ProviderName: ProviderOpenAI}
		}
		return NewOpenAI(apiKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", provider)
	}
}
