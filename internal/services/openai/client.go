// Package openai adapts the go-openai SDK to the plain text completion shape
// used by the repair oracle.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

// zeroTemperature stands in for 0, which go-openai drops from the request
// (omitempty) and the server would replace with its default.
const zeroTemperature float32 = 1e-6

// Config captures the settings needed to call an OpenAI-compatible API.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// Client sends chat completion requests through go-openai.
type Client struct {
	client      *goopenai.Client
	model       string
	temperature float32
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key required")
	}
	clientCfg := goopenai.DefaultConfig(apiKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		clientCfg.BaseURL = base
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	temperature := float32(cfg.Temperature)
	if temperature <= 0 {
		temperature = zeroTemperature
	}
	return &Client{
		client:      goopenai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: temperature,
	}, nil
}

// Complete returns the content of the first choice.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("openai: client not initialized")
	}
	if strings.TrimSpace(userPrompt) == "" {
		return "", errors.New("openai: user prompt required")
	}
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: userPrompt})

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("openai: empty content (finish_reason=%s)", resp.Choices[0].FinishReason)
	}
	return content, nil
}

// Name identifies the backend in logs.
func (c *Client) Name() string {
	if c == nil {
		return "openai"
	}
	return "openai:" + c.model
}
