package provider

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiClient implements Client using Google's GenAI SDK. The target id
// is used as the model name directly (e.g. "gemini-2.5-flash").
type GeminiClient struct {
	client      *genai.Client
	temperature float32
	logger      *zap.Logger
}

// NewGeminiClient creates a Gemini-backed client.
func NewGeminiClient(ctx context.Context, apiKey string, logger *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, &Error{Kind: KindOther, Message: "GenAI API key is required"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, &Error{Kind: KindOther, Message: "failed to create GenAI client", Err: err}
	}

	return &GeminiClient{
		client:      client,
		temperature: 0.1,
		logger:      logger,
	}, nil
}

// Infer sends instructions as the system instruction and payload as the
// user content.
func (c *GeminiClient) Infer(ctx context.Context, instructions, payload, targetID string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if instructions != "" {
		config.SystemInstruction = genai.NewContentFromText(instructions, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(payload, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx, targetID, contents, config)
	if err != nil {
		return "", classifyGenAIError(err)
	}

	text := result.Text()
	if text == "" {
		return "", &Error{Kind: KindOther, Message: "no completion returned"}
	}
	return text, nil
}

// classifyGenAIError maps SDK errors onto the shared taxonomy.
func classifyGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Status: apiErr.Code, Message: apiErr.Message, Err: err}
		case apiErr.Code == http.StatusBadRequest && mentionsContextOverflow(apiErr.Message):
			return &Error{Kind: KindSizeExceeded, Status: apiErr.Code, Message: apiErr.Message, Err: err}
		case apiErr.Code >= 500:
			return &Error{Kind: KindTransport, Status: apiErr.Code, Message: apiErr.Message, Err: err}
		default:
			return &Error{Kind: KindOther, Status: apiErr.Code, Message: apiErr.Message, Err: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTransport, Message: "call cancelled or timed out", Err: err}
	}
	return &Error{Kind: KindTransport, Message: "GenAI call failed", Err: err}
}
