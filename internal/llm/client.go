package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Role tags a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "assistant"
)

// Message is one entry of an ordered chat exchange.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage reports token consumption for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the raw text of a completed chat call plus its accounting data.
type Response struct {
	Content   string
	Model     string
	Usage     Usage
	LatencyMs int64
}

// Client is the LLM capability consumed by every generator and classifier:
// an ordered sequence of role-tagged messages in, free-form text out.
type Client interface {
	Chat(ctx context.Context, messages []Message, maxTokens int) (*Response, error)
}

// HTTPClient talks to an OpenAI-compatible chat completions endpoint.
type HTTPClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	limiter     *RateLimiter
	client      *http.Client
}

// NewHTTPClient creates a client for the given endpoint and model.
func NewHTTPClient(apiKey, baseURL, model string, temperature float64) *HTTPClient {
	return &HTTPClient{
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		limiter:     NewRateLimiter(60),
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

// LogStats writes a snapshot of the rate limiter state to the log.
func (c *HTTPClient) LogStats() {
	s := c.limiter.GetStats()
	log.Printf("rate limiter: rpm=%d tokens=%d consecutive_errors=%d in_backoff=%v backoff=%s",
		s.RequestsPerMinute, s.TokensAvailable, s.ConsecutiveErrors, s.InBackoff, c.limiter.GetBackoffDuration())
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

// Chat sends the message sequence and returns the first choice's text.
func (c *HTTPClient) Chat(ctx context.Context, messages []Message, maxTokens int) (*Response, error) {
	if !c.limiter.TryAcquire() {
		log.Printf("rate limiter: no token available, waiting")
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	startTime := time.Now()

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
		Stream:      false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.limiter.RecordError()
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.limiter.RecordError()
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	c.limiter.RecordSuccess()

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &Response{
		Content:   chatResp.Choices[0].Message.Content,
		Model:     chatResp.Model,
		Usage:     chatResp.Usage,
		LatencyMs: time.Since(startTime).Milliseconds(),
	}, nil
}
