package ollama

import (
	"strings"

	"github.com/kiranshivaraju/healthradar/internal/ai/chat"
	"github.com/kiranshivaraju/healthradar/internal/config"
)

// NewProvider talks to Ollama through its OpenAI-compatible /v1 endpoint.
func NewProvider(cfg config.OllamaConfig) *chat.Client {
	return chat.New(chat.Config{
		Name:    "ollama",
		BaseURL: strings.TrimRight(cfg.BaseURL, "/") + "/v1",
		Model:   cfg.Model,
	})
}
