package llm

import (
	"context"
	"fmt"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Generate sends one request to the model and returns its text output.
	// When OutputSchema is set the provider asks the model for structured JSON.
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string
}

// GenerationRequest contains all parameters needed for generation
type GenerationRequest struct {
	Model         string
	InputArray    []map[string]any
	ReasoningMode string
	SystemPrompt  string
	// Structured output schema, optional
	OutputSchema *OutputSchema

	// Sampling controls. Nil leaves the provider default in place.
	Temperature     *float64
	TopP            *float64
	MaxOutputTokens int64
}

// OutputSchema defines the expected JSON output structure
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema object
}

// GenerationResponse contains the result from the LLM
type GenerationResponse struct {
	RawOutput string     `json:"-"` // text output with code fences removed
	Usage     any        `json:"usage"`
	Tokens    TokenUsage `json:"tokens"`
}

// TokenUsage is the provider-neutral token count of one call
type TokenUsage struct {
	Input     int64 `json:"input"`
	Output    int64 `json:"output"`
	Total     int64 `json:"total"`
	Reasoning int64 `json:"reasoning,omitempty"`
}

// TransportError wraps any failure to obtain output from a provider
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Float returns a pointer to v, for the optional sampling fields
func Float(v float64) *float64 {
	return &v
}
