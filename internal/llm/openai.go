package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"quartermaster/internal/errors"
	tokenutil "quartermaster/internal/shared/token"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-3.5-turbo"
	defaultTimeout = 60 * time.Second

	systemPrompt = "You are a procurement expert helping to justify component selection decisions."
	temperature  = 0.7
)

// OpenAI is a chat-completions client. Transport failures and retryable
// upstream statuses surface as transient errors so the retry decorator can
// act on them; they are never embedded in the generated text.
type OpenAI struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	onUsage    func(inputTokens, outputTokens int)
}

// OpenAIOption customizes the OpenAI client.
type OpenAIOption func(*OpenAI)

// WithBaseURL points the client at a different API endpoint (proxies,
// httptest servers).
func WithBaseURL(baseURL string) OpenAIOption {
	return func(c *OpenAI) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithModel overrides the default model.
func WithModel(model string) OpenAIOption {
	return func(c *OpenAI) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) OpenAIOption {
	return func(c *OpenAI) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithUsageCallback registers a hook that receives token usage per call,
// for the metrics collector.
func WithUsageCallback(fn func(inputTokens, outputTokens int)) OpenAIOption {
	return func(c *OpenAI) {
		c.onUsage = fn
	}
}

// NewOpenAI builds the client.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	c := &OpenAI{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OpenAI) Provider() string {
	return ProviderOpenAI
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAI) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Transient(fmt.Errorf("openai request failed: %w", err), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Transient(fmt.Errorf("read openai response: %w", err), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("openai returned status %d: %s", resp.StatusCode, summarizeAPIError(data))
		if errors.TransientStatus(resp.StatusCode) {
			return "", errors.Transient(err, resp.StatusCode)
		}
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}

	text := parsed.Choices[0].Message.Content
	if c.onUsage != nil {
		input, output := parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens
		if input == 0 {
			input = tokenutil.CountTokens(systemPrompt + prompt)
		}
		if output == 0 {
			output = tokenutil.CountTokens(text)
		}
		c.onUsage(input, output)
	}
	return text, nil
}

func summarizeAPIError(body []byte) string {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return parsed.Error.Message
	}
	const maxLen = 200
	if len(body) > maxLen {
		body = body[:maxLen]
	}
	return string(body)
}

var _ Client = (*OpenAI)(nil)
