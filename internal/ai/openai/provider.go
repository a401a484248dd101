package openai

import (
	"github.com/kiranshivaraju/healthradar/internal/ai/chat"
	"github.com/kiranshivaraju/healthradar/internal/config"
)

// NewProvider returns an OpenAI chat completions provider.
func NewProvider(cfg config.OpenAIConfig) *chat.Client {
	return chat.New(chat.Config{
		Name:    "openai",
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
}
