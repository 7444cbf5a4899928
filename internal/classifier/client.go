package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// RawOutput is the undecoded body of a successful chat-completions call.
type RawOutput []byte

// Config describes the chat-completions endpoint and sampling parameters.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
}

// Client issues verification requests to an OpenAI-compatible chat-completions API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tools      []Tool
}

// NewClient validates cfg and builds a client. A nil httpClient gets a 30s timeout.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("classifier base URL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("classifier model is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{cfg: cfg, httpClient: httpClient, tools: []Tool{VerifyConcernTool()}}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Classify sends one verification request for the concern text. It does not retry.
func (c *Client) Classify(ctx context.Context, concernText string) (RawOutput, error) {
	body, err := json.Marshal(completionRequest{
		Model: c.cfg.Model,
		Messages: []Message{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: userPrompt(concernText)},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Tools:       c.tools,
		ToolChoice:  "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal classification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build classification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	return RawOutput(payload), nil
}
