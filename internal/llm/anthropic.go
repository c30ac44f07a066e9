package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// AnthropicClient implements Client on top of llmkit's Anthropic bindings.
type AnthropicClient struct {
	apiKey   string
	settings Settings
}

// NewAnthropicClient creates a client with the given API key and settings.
func NewAnthropicClient(apiKey string, settings Settings) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if err := settings.validate(); err != nil {
		return nil, fmt.Errorf("invalid model settings: %w", err)
	}
	return &AnthropicClient{apiKey: apiKey, settings: settings}, nil
}

// Complete runs a free-text completion. The underlying call enforces its own
// timeout; ctx is checked before dispatch so a torn-down caller never starts
// a new call.
func (c *AnthropicClient) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	start := time.Now()
	response, err := anthropic.PromptWithSettings(systemPrompt, prompt, "", c.apiKey, c.requestSettings())
	if err != nil {
		return "", fmt.Errorf("completion call failed: %w", err)
	}
	if len(response.Content) == 0 {
		return "", ErrEmptyResponse
	}

	slog.Debug("completion finished",
		slog.String("model", c.settings.Model),
		slog.Duration("duration", time.Since(start)))
	return response.Content[0].Text, nil
}

// Extract runs a schema-constrained extraction over prior free text. The
// schema definition is passed through to force a structured response; the
// returned bytes are the raw JSON record.
func (c *AnthropicClient) Extract(ctx context.Context, text, systemPrompt string, schema Schema) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if schema.Definition == "" {
		return nil, fmt.Errorf("schema %q has no definition", schema.Name)
	}

	start := time.Now()
	response, err := anthropic.PromptWithSettings(systemPrompt, text, schema.Definition, c.apiKey, c.requestSettings())
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}
	if len(response.Content) == 0 {
		return nil, ErrEmptyResponse
	}

	slog.Debug("extraction finished",
		slog.String("model", c.settings.Model),
		slog.String("schema", schema.Name),
		slog.Duration("duration", time.Since(start)))
	return []byte(response.Content[0].Text), nil
}

func (c *AnthropicClient) requestSettings() types.RequestSettings {
	return types.RequestSettings{
		Model:       c.settings.Model,
		MaxTokens:   c.settings.MaxTokens,
		Temperature: c.settings.Temperature,
	}
}
