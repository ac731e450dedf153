// Package gemini adapts the Google Gen AI SDK to the plain text completion
// shape used by the repair oracle.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.0-flash"

// Config captures the settings needed to call the Gemini API.
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
}

// Client sends single-turn prompts to a Gemini model.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewClient constructs a Gemini client. The API key is required; the SDK's
// own environment lookup is not relied upon.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api key required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{
		client:      client,
		model:       model,
		temperature: float32(cfg.Temperature),
	}, nil
}

// Complete sends the prompts and returns the concatenated text parts of the
// first candidate.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini: client not initialized")
	}
	if strings.TrimSpace(userPrompt) == "" {
		return "", errors.New("gemini: user prompt required")
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if strings.TrimSpace(systemPrompt) != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

// Name identifies the backend in logs.
func (c *Client) Name() string {
	if c == nil {
		return "gemini"
	}
	return "gemini:" + c.model
}
