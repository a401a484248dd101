// Package sms sends text messages through a TextBee SMS gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sentinel errors for gateway failures.
var (
	ErrGatewayUnreachable = errors.New("sms gateway unreachable")
	ErrGatewayRejected    = errors.New("sms gateway rejected message")
	ErrGatewayTimeout     = errors.New("sms gateway timeout")
	ErrNotConfigured      = errors.New("sms gateway not configured")
)

// Sender delivers one message to one phone number.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// TextBeeClient implements Sender against the TextBee HTTP API.
type TextBeeClient struct {
	baseURL  string
	apiKey   string
	deviceID string
	client   *http.Client
}

// NewTextBeeClient creates a TextBee client.
func NewTextBeeClient(baseURL, apiKey, deviceID string, timeout time.Duration) *TextBeeClient {
	return &TextBeeClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		deviceID: deviceID,
		client:   &http.Client{Timeout: timeout},
	}
}

type sendRequest struct {
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
}

func (c *TextBeeClient) Send(ctx context.Context, phone, message string) error {
	if c.baseURL == "" || c.apiKey == "" || c.deviceID == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(sendRequest{Recipients: []string{phone}, Message: message})
	if err != nil {
		return fmt.Errorf("encoding sms request: %w", err)
	}

	u := fmt.Sprintf("%s/gateway/devices/%s/send-sms", c.baseURL, url.PathEscape(c.deviceID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: status %d: %s", ErrGatewayUnreachable, resp.StatusCode, strings.TrimSpace(string(detail)))
		}
		return fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
}

var _ Sender = (*TextBeeClient)(nil)
