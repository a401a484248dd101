package openrouter

import (
	"github.com/kiranshivaraju/healthradar/internal/ai/chat"
	"github.com/kiranshivaraju/healthradar/internal/config"
)

const (
	referer = "https://healthradar.local"
	title   = "HealthRadar Disease Analysis"
)

// NewProvider returns an OpenRouter provider. OpenRouter uses the referer and
// title headers for app attribution.
func NewProvider(cfg config.OpenRouterConfig) *chat.Client {
	return chat.New(chat.Config{
		Name:    "openrouter",
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Headers: map[string]string{
			"HTTP-Referer": referer,
			"X-Title":      title,
		},
	})
}
