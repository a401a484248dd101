package vllm

import (
	"strings"

	"github.com/kiranshivaraju/healthradar/internal/ai/chat"
	"github.com/kiranshivaraju/healthradar/internal/config"
)

// NewProvider returns a provider for a vLLM server's OpenAI-compatible API.
func NewProvider(cfg config.VLLMConfig) *chat.Client {
	return chat.New(chat.Config{
		Name:    "vllm",
		BaseURL: strings.TrimRight(cfg.BaseURL, "/") + "/v1",
		Model:   cfg.Model,
	})
}
