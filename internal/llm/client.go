// Package llm is the language-model boundary: a free-text completion call
// used by the analysis phase, and a schema-constrained extraction call used
// by the parsing phase. Everything above this package is transport-agnostic;
// tests inject fakes.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the upstream model answers with no content.
var ErrEmptyResponse = errors.New("empty model response")

// Schema names the structured output contract for an extraction call.
type Schema struct {
	Name        string
	Description string
	// Definition is the JSON schema document the response must satisfy.
	Definition string
}

// Client is the boundary consumed by the runner and the document generator.
type Client interface {
	// Complete runs a free-text completion for the given prompt.
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)

	// Extract runs a schema-constrained extraction over prior free text,
	// returning a JSON record matching the schema.
	Extract(ctx context.Context, text, systemPrompt string, schema Schema) ([]byte, error)
}

// Settings carries per-call model parameters, loaded from configuration.
type Settings struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

func (s Settings) validate() error {
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}
	return nil
}
