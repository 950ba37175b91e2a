// Package chat provides the Anthropic-backed conversational client.
//
// The client is single turn: each Send carries one user message plus the
// configured system prompt, and returns the assistant's text reply with
// token usage. Conversation history is owned by callers.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/logger"
)

const (
	contentTypeHeader     = "Content-Type"
	applicationJSON       = "application/json"
	anthropicVersionKey   = "Anthropic-Version"
	anthropicVersionValue = "2023-06-01"
	anthropicAPIHost      = "api.anthropic.com"
	anthropicBaseURL      = "https://api.anthropic.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-3-5-sonnet-20241022"

	defaultMaxTokens  = 1024
	httpClientTimeout = 60 * time.Second
)

var (
	// ErrNoAPIKey is returned when no Anthropic API key is configured.
	ErrNoAPIKey = errors.New("anthropic API key not configured")
	// ErrEmptyMessage is returned when the user message is empty.
	ErrEmptyMessage = errors.New("message cannot be empty")
)

// normalizeBaseURL ensures the base URL includes the /v1 path for
// Anthropic's API. Mock server URLs (non-Anthropic hosts) are left
// unchanged.
func normalizeBaseURL(baseURL string) string {
	if strings.Contains(baseURL, anthropicAPIHost) {
		if !strings.Contains(baseURL, "/v1") {
			return strings.TrimSuffix(baseURL, "/") + "/v1"
		}
	}
	return baseURL
}

// Client talks to the Anthropic Messages API.
type Client struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	model        string
	maxTokens    int
	systemPrompt string
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = normalizeBaseURL(url)
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithModel sets the model identifier.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithMaxTokens sets the completion token budget.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		c.maxTokens = n
	}
}

// WithSystemPrompt sets the system prompt sent with every message.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) {
		c.systemPrompt = prompt
	}
}

// NewClient creates a chat client. An empty apiKey falls back to the
// ANTHROPIC_API_KEY and CLAUDE_API_KEY environment variables.
func NewClient(apiKey string, opts ...Option) *Client {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("CLAUDE_API_KEY")
	}

	c := &Client{
		apiKey:    apiKey,
		baseURL:   anthropicBaseURL,
		client:    &http.Client{Timeout: httpClientTimeout},
		model:     DefaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Reply is a single assistant response.
type Reply struct {
	Text         string `json:"text"`
	Model        string `json:"model"`
	StopReason   string `json:"stop_reason,omitempty"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Anthropic Messages API request/response structures
type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
	System    string        `json:"system,omitempty"`
}

type chatMessage struct {
	Role    string             `json:"role"`
	Content []chatContentBlock `json:"content"`
}

type chatContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type chatResponse struct {
	ID         string             `json:"id"`
	Role       string             `json:"role"`
	Content    []chatContentBlock `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Usage      chatUsage          `json:"usage"`
	Error      *chatAPIError      `json:"error,omitempty"`
}

type chatUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type chatAPIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Send submits one user message and returns the assistant's reply.
func (c *Client) Send(ctx context.Context, message string) (*Reply, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	req := chatRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    c.systemPrompt,
		Messages: []chatMessage{
			{Role: "user", Content: []chatContentBlock{{Type: "text", Text: message}}},
		},
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/messages"
	logger.ChatCall(c.model, len(req.Messages))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set(contentTypeHeader, applicationJSON)
	httpReq.Header.Set(anthropicVersionKey, anthropicVersionValue)
	httpReq.Header.Set("X-API-Key", c.apiKey)

	logger.APIRequest("Anthropic", http.MethodPost, url, map[string]string{
		contentTypeHeader:   applicationJSON,
		"X-API-Key":         "***",
		anthropicVersionKey: anthropicVersionValue,
	}, req)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		logger.ChatError(c.model, err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	logger.APIResponse("Anthropic", resp.StatusCode, string(respBody), nil)

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("API request to %s failed with status %d: %s", url, resp.StatusCode, string(respBody))
		logger.ChatError(c.model, err)
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.Error != nil {
		err := fmt.Errorf("anthropic API error: %s", parsed.Error.Message)
		logger.ChatError(c.model, err)
		return nil, err
	}
	if len(parsed.Content) == 0 {
		return nil, fmt.Errorf("no content in response")
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no text content found in response")
	}

	logger.ChatResponse(c.model, parsed.Usage.InputTokens, parsed.Usage.OutputTokens)

	return &Reply{
		Text:         text,
		Model:        parsed.Model,
		StopReason:   parsed.StopReason,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}, nil
}
