package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/jonathan/resume-studio/internal/schemas"
)

// Client is the AI collaborator. It is constructed once and injected; there is no package-level client.
type Client interface {
	// GenerateObject returns JSON text conforming to schemaJSON, or a *NoObjectError.
	GenerateObject(ctx context.Context, prompt, schemaJSON string, tier ModelTier) (string, error)
	// StreamContent streams a text completion, calling onDelta for each chunk in order.
	// It returns the full text. An error from onDelta stops the stream and is returned as is.
	StreamContent(ctx context.Context, prompt string, tier ModelTier, onDelta func(delta string) error) (string, error)
	// GetModel returns the provider model name for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultConfig()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

func (c *GeminiClient) model(tier ModelTier) (*genai.GenerativeModel, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return nil, fmt.Errorf("no model configured for tier %s", tier)
	}
	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(c.config.Temperature)
	return model, nil
}

// GenerateObject asks for JSON under a response schema and re-validates the result locally.
func (c *GeminiClient) GenerateObject(ctx context.Context, prompt, schemaJSON string, tier ModelTier) (string, error) {
	model, err := c.model(tier)
	if err != nil {
		return "", err
	}

	responseSchema, err := ConvertSchema(schemaJSON)
	if err != nil {
		return "", err
	}
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = responseSchema

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", &NoObjectError{Cause: err}
	}
	return CheckObject(text, schemaJSON)
}

// CheckObject strips fences from text and validates it against schemaJSON.
func CheckObject(text, schemaJSON string) (string, error) {
	text = StripCodeFence(text)
	if text == "" {
		return "", &NoObjectError{Cause: errors.New("empty response")}
	}
	if err := schemas.ValidateJSONString(schemaJSON, text); err != nil {
		return "", &NoObjectError{Text: text, Cause: err}
	}
	return text, nil
}

// StreamContent streams a plain-text completion.
func (c *GeminiClient) StreamContent(ctx context.Context, prompt string, tier ModelTier, onDelta func(delta string) error) (string, error) {
	model, err := c.model(tier)
	if err != nil {
		return "", err
	}

	var full strings.Builder
	iter := model.GenerateContentStream(ctx, genai.Text(prompt))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return full.String(), fmt.Errorf("stream failed: %w", err)
		}

		for _, delta := range textParts(resp) {
			if delta == "" {
				continue
			}
			full.WriteString(delta)
			if onDelta != nil {
				if err := onDelta(delta); err != nil {
					return full.String(), err
				}
			}
		}
	}

	if strings.TrimSpace(full.String()) == "" {
		return "", ErrEmptyCompletion
	}
	return full.String(), nil
}

// GetModel returns the model name for a tier
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	parts := textParts(resp)
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

func textParts(resp *genai.GenerateContentResponse) []string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	return parts
}
