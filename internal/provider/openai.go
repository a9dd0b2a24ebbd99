package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// OpenAIClient implements Client against any OpenAI-compatible
// chat-completions endpoint. The target id is passed through as the
// model name, so one client serves every profile sharing a base URL.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
	logger     *zap.Logger
}

// OpenAIConfig holds configuration for OpenAIClient.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// DefaultOpenAIConfig returns sensible defaults.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:    apiKey,
		BaseURL:   "https://api.openai.com/v1",
		MaxTokens: 4096,
		Timeout:   120 * time.Second,
	}
}

// NewOpenAIClient creates a client from config.
func NewOpenAIClient(config OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}
	return &OpenAIClient{
		apiKey:    config.APIKey,
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		maxTokens: config.MaxTokens,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Infer sends instructions as the system message and payload as the user
// message, returning the raw completion text.
func (c *OpenAIClient) Infer(ctx context.Context, instructions, payload, targetID string) (string, error) {
	if c.apiKey == "" {
		return "", &Error{Kind: KindOther, Message: "API key not configured"}
	}

	messages := make([]chatMessage, 0, 2)
	if instructions != "" {
		messages = append(messages, chatMessage{Role: "system", Content: instructions})
	}
	messages = append(messages, chatMessage{Role: "user", Content: payload})

	reqBody := chatRequest{
		Model:       targetID,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: 0.1, // Low temperature for structured output
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", &Error{Kind: KindOther, Message: "failed to marshal request", Err: err}
	}

	// Retry loop for 429 errors
	maxRetries := 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			// Exponential backoff: 1s, 2s, 4s
			select {
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			case <-ctx.Done():
				return "", &Error{Kind: KindTransport, Message: "cancelled during backoff", Err: ctx.Err()}
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return "", &Error{Kind: KindOther, Message: "failed to create request", Err: err}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", &Error{Kind: KindTransport, Message: "request failed", Err: err}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", &Error{Kind: KindTransport, Message: "failed to read response", Err: err}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &Error{Kind: KindRateLimited, Status: resp.StatusCode, Message: "rate limit exceeded"}
			c.logger.Warn("Provider rate limited, backing off",
				zap.String("model", targetID), zap.Int("attempt", i+1))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return "", classifyHTTPFailure(resp.StatusCode, string(body))
		}

		var parsed chatResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", &Error{Kind: KindOther, Status: resp.StatusCode, Message: "failed to parse response", Err: err}
		}
		if parsed.Error != nil {
			return "", classifyAPIError(resp.StatusCode, parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 {
			return "", &Error{Kind: KindOther, Status: resp.StatusCode, Message: "no completion returned"}
		}
		return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// classifyHTTPFailure maps a non-200 status plus body into an Error kind.
// Providers disagree on how they report oversized payloads, so both 413
// and 400-with-context-language count as size rejections.
func classifyHTTPFailure(status int, body string) *Error {
	switch {
	case status == http.StatusRequestEntityTooLarge:
		return &Error{Kind: KindSizeExceeded, Status: status, Message: truncate(body, 300)}
	case status == http.StatusBadRequest && mentionsContextOverflow(body):
		return &Error{Kind: KindSizeExceeded, Status: status, Message: truncate(body, 300)}
	case status == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Status: status, Message: truncate(body, 300)}
	case status >= 500:
		return &Error{Kind: KindTransport, Status: status, Message: truncate(body, 300)}
	default:
		return &Error{Kind: KindOther, Status: status, Message: truncate(body, 300)}
	}
}

func classifyAPIError(status int, message string) *Error {
	if mentionsContextOverflow(message) {
		return &Error{Kind: KindSizeExceeded, Status: status, Message: message}
	}
	return &Error{Kind: KindOther, Status: status, Message: message}
}

func mentionsContextOverflow(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range []string{"context length", "context_length", "maximum context", "too many tokens", "token limit", "payload too large"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
