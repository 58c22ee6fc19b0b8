// Package llm wraps the Gemini client used for puzzle and dialogue generation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

var (
	// ErrNoAPIKey is returned by New when no key is configured.
	ErrNoAPIKey = errors.New("gemini api key not configured")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("gemini returned an empty response")
)

// Client generates text with a single Gemini model.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// New creates a Gemini client. It returns ErrNoAPIKey for an empty key so
// callers can fall back to canned content.
func New(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultModel
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: c, model: model, timeout: timeout}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Text generates free-form text for prompt.
func (c *Client) Text(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, nil)
}

// JSON generates a JSON document constrained by schema.
func (c *Client) JSON(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	return c.generate(ctx, prompt, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
}

func (c *Client) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := CleanOutput(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// CleanOutput strips whitespace and markdown code fences from model output.
func CleanOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
