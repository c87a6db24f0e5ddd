// Package llm implements the chat-completions client shared by the
// compatibility classifier and the scorer, including the retryability
// classification of provider failures.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/profilegate/screener/internal/core"
)

// APIError describes a failed provider call. Retryable marks transient
// conditions worth another attempt (rate limits, server errors, timeouts).
type APIError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm provider error (status %d, retryable %t): %s", e.StatusCode, e.Retryable, e.Message)
}

// IsRetryable reports whether the error represents a transient condition.
// Transport timeouts and deadline expiry count as retryable even without an
// APIError in the chain.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ClientConfig holds configuration options for the LLM client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout bounds a single completion call. Zero means 60s.
	Timeout     time.Duration
	Temperature float64
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

const defaultCallTimeout = 60 * time.Second

// Client calls a chat-completions style endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	timeout     time.Duration
	temperature float64
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates an LLM client for the configured endpoint and model.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("llm base URL is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("llm model is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		timeout:     timeout,
		temperature: cfg.Temperature,
		httpClient:  httpClient,
		logger:      cfg.Logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete performs a single completion call and returns the assistant
// message content.
func (c *Client) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.JSONResponse {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion call: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}

	if c.logger != nil {
		c.logger.DebugContext(ctx, "completion call finished",
			"status", resp.StatusCode,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}

	if resp.StatusCode != http.StatusOK {
		return "", statusToAPIError(resp.StatusCode, raw)
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if decoded.Error != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: decoded.Error.Message}
	}
	if len(decoded.Choices) == 0 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "completion response has no choices"}
	}
	return decoded.Choices[0].Message.Content, nil
}

func statusToAPIError(status int, body []byte) *APIError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256] + "..."
	}
	retryable := status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= http.StatusInternalServerError
	return &APIError{StatusCode: status, Message: msg, Retryable: retryable}
}
