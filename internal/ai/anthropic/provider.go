package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/healthradar/internal/ai/chat"
	"github.com/kiranshivaraju/healthradar/internal/config"
	"github.com/kiranshivaraju/healthradar/pkg/models"
)

const (
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 2000
)

// Provider implements models.AIProvider using the Anthropic Messages API.
type Provider struct {
	cfg  config.AnthropicConfig
	http *http.Client
}

func NewProvider(cfg config.AnthropicConfig) *Provider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Provider{cfg: cfg, http: &http.Client{Timeout: 2 * time.Minute}}
}

func (p *Provider) Name() string  { return "anthropic" }
func (p *Provider) Model() string { return p.cfg.Model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float32   `json:"temperature"`
	TopP        float32   `json:"top_p,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	body, err := json.Marshal(messagesRequest{
		Model:       p.cfg.Model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		TopP:        req.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("marshal messages request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build messages request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return "", chat.ClassifyError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %v", models.ErrInvalidResponse, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", chat.StatusError("anthropic", resp.StatusCode, raw)
	}

	var out messagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%w: %s", models.ErrInvalidResponse, out.Error.Message)
	}

	var text strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrInvalidResponse)
	}
	return text.String(), nil
}

var _ models.AIProvider = (*Provider)(nil)
