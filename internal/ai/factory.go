package ai

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/healthradar/internal/ai/anthropic"
	"github.com/kiranshivaraju/healthradar/internal/ai/gemini"
	"github.com/kiranshivaraju/healthradar/internal/ai/ollama"
	"github.com/kiranshivaraju/healthradar/internal/ai/openai"
	"github.com/kiranshivaraju/healthradar/internal/ai/openrouter"
	"github.com/kiranshivaraju/healthradar/internal/ai/vllm"
	"github.com/kiranshivaraju/healthradar/internal/config"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

// NewProvider constructs the appropriate AI provider based on config.
// Called once at server startup.
func NewProvider(ctx context.Context, cfg config.AIConfig) (models.AIProvider, error) {
	switch cfg.Provider {
	case "openrouter":
		return openrouter.NewProvider(cfg.OpenRouter), nil
	case "ollama":
		return ollama.NewProvider(cfg.Ollama), nil
	case "vllm":
		return vllm.NewProvider(cfg.VLLM), nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic), nil
	case "gemini":
		return gemini.NewProvider(ctx, cfg.Gemini)
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of openrouter, ollama, vllm, openai, anthropic, gemini", cfg.Provider)
	}
}
