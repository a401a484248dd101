// Package models contains shared data models used across the HealthRadar codebase.
package models

import (
	"context"
	"errors"
)

// AIProvider is the core interface that all AI integrations must implement.
// Never call specific AI providers directly; always inject this interface.
type AIProvider interface {
	// Complete sends a chat-style prompt and returns the raw model text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Name returns the provider identifier (e.g., "openrouter", "gemini").
	Name() string
	// Model returns the model identifier used for completions.
	Model() string
}

// CompletionRequest is the input to a single text-completion call.
// Zero TopP and MaxTokens leave the provider default in place.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// Provider errors. Implementations wrap one of these so callers can branch
// with errors.Is regardless of which backend is configured.
var (
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
)
