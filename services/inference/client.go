package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the OpenAI-compatible inference endpoint
	DefaultBaseURL = "https://inference.do-ai.run"
	// DefaultTimeout is longer for LLM inference requests
	DefaultTimeout = 120 * time.Second
	// DefaultModel is the default model for inference
	DefaultModel = "openai-gpt-oss-120b"
)

// Client handles direct LLM inference API calls
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	model      string
}

// Config holds configuration for the inference client
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Model   string
}

// NewClient creates a new inference client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	return &Client{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		model: config.Model,
	}
}

// Configured reports whether an API key is bound
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Message represents a message in the chat completion request
type Message struct {
	Role    string `json:"role"`    // "system", "user", "assistant"
	Content string `json:"content"` // The message content
}

// ResponseFormat requests plain text or JSON object output
type ResponseFormat struct {
	Type string `json:"type"` // "text" or "json_object"
}

// Request represents an OpenAI-compatible chat completion request
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Choice represents a choice in the inference response
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response represents the response from the inference API
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// ChatCompletion sends a chat completion request and returns the first choice
// message content
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, jsonOutput bool) (string, error) {
	req := Request{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.1,
	}
	if jsonOutput {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("inference API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("inference API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var infResp Response
	if err := json.NewDecoder(resp.Body).Decode(&infResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(infResp.Choices) == 0 {
		return "", fmt.Errorf("inference API returned no choices")
	}

	return infResp.Choices[0].Message.Content, nil
}
