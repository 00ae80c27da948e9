package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// debugCallCounter numbers the request/response dumps written to
// FASTDOC_DEBUG_PROMPT_DIR.
var debugCallCounter uint64

// Client talks to any OpenAI-compatible chat completions endpoint (Ollama,
// LM Studio, vLLM) over plain HTTP.
type Client struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	HTTP        *http.Client
}

// NewClient creates a client from environment variables.
func NewClient() *Client {
	return &Client{
		APIKey:    os.Getenv("OPENAI_API_KEY"),
		Model:     getEnvOr("FASTDOC_MODEL", "gpt-4o-mini"),
		BaseURL:   getEnvOr("BASE_URL", "https://api.openai.com/v1"),
		MaxTokens: 600,
		HTTP:      &http.Client{Timeout: 120 * time.Second},
	}
}

// NewClientWith creates a client with explicit parameters.
func NewClientWith(apiKey, model, baseURL string) *Client {
	return &Client{
		APIKey:    apiKey,
		Model:     model,
		BaseURL:   baseURL,
		MaxTokens: 600,
		HTTP:      &http.Client{Timeout: 120 * time.Second},
	}
}

// NewClientFrom creates a client from backend Params, falling back to the
// environment for anything unset.
func NewClientFrom(p Params) *Client {
	c := NewClient()
	if p.APIKey != "" {
		c.APIKey = p.APIKey
	}
	if p.Model != "" {
		c.Model = p.Model
	}
	if p.BaseURL != "" {
		c.BaseURL = p.BaseURL
	}
	if p.MaxTokens > 0 {
		c.MaxTokens = p.MaxTokens
	}
	c.Temperature = p.Temperature
	return c
}

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete implements Completer.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.ChatCompletion(ctx, []ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}, c.Temperature, c.MaxTokens)
}

// ChatCompletion sends a chat completion request and returns the response text.
func (c *Client) ChatCompletion(ctx context.Context, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	req := chatRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	dumpDir := os.Getenv("FASTDOC_DEBUG_PROMPT_DIR")
	var callNum uint64
	if dumpDir != "" {
		callNum = atomic.AddUint64(&debugCallCounter, 1)
		dump(dumpDir, fmt.Sprintf("call_%03d_request.json", callNum), req)
	}

	body, err := c.post(ctx, "/chat/completions", req)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse chat response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	if dumpDir != "" {
		dump(dumpDir, fmt.Sprintf("call_%03d_response.json", callNum), resp)
	}

	return resp.Choices[0].Message.Content, nil
}

func dump(dir, name string, v any) {
	_ = os.MkdirAll(dir, 0755)
	data, err := json.MarshalIndent(v, "", "  ")
	if err == nil {
		_ = os.WriteFile(filepath.Join(dir, name), data, 0644)
	}
}

// --- HTTP helper ---

// httpStatusError is a non-2xx reply.
type httpStatusError struct {
	Status int
	Body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		err = fmt.Errorf("HTTP request to %s: %w", url, err)
		var netErr net.Error
		if errors.As(err, &netErr) && ctx.Err() == nil {
			return nil, Retryable(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		statusErr := &httpStatusError{Status: resp.StatusCode, Body: string(body)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, Retryable(statusErr)
		}
		return nil, statusErr
	}

	return body, nil
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
