// Package chat is a client for OpenAI-compatible /chat/completions
// endpoints. OpenAI, OpenRouter, vLLM and Ollama all speak it.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/healthradar/pkg/models"
)

const maxErrorBody = 512

// Config describes one OpenAI-compatible endpoint.
type Config struct {
	Name    string
	BaseURL string // up to and including the version segment, e.g. https://api.openai.com/v1
	APIKey  string
	Model   string
	Headers map[string]string
	Timeout time.Duration
}

// Client implements models.AIProvider against /chat/completions.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (c *Client) Name() string  { return c.cfg.Name }
func (c *Client) Model() string { return c.cfg.Model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float32   `json:"temperature"`
	TopP        float32   `json:"top_p,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type response struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	var msgs []message
	if req.System != "" {
		msgs = append(msgs, message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, message{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(request{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", ClassifyError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %v", models.ErrInvalidResponse, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", StatusError(c.cfg.Name, resp.StatusCode, raw)
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%w: %s", models.ErrInvalidResponse, out.Error.Message)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrInvalidResponse)
	}
	return out.Choices[0].Message.Content, nil
}

// ClassifyError maps transport failures onto the provider sentinel errors.
func ClassifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
	}
	return fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
}

// StatusError describes a non-200 reply. 5xx and 429 mean the provider is
// unavailable; anything else is an invalid response.
func StatusError(name string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	sentinel := models.ErrInvalidResponse
	if status >= 500 || status == http.StatusTooManyRequests {
		sentinel = models.ErrProviderUnavailable
	}
	return fmt.Errorf("%w: %s returned status %d: %s", sentinel, name, status, msg)
}

var _ models.AIProvider = (*Client)(nil)
