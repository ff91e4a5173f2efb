package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bantconfirm/whatsapp-platform/internal/config"
	"github.com/bantconfirm/whatsapp-platform/internal/metrics"
)

const chatCompletionsPath = "/v1/chat/completions"

// Turn is one prior message fed to the model
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompleter produces an assistant reply from a system prompt and prior
// turns. Implementations make a single attempt; retries are the caller's
// concern (and the conversation service deliberately has none).
type ChatCompleter interface {
	Complete(ctx context.Context, systemPrompt string, turns []Turn) (string, error)
}

// Client calls an OpenAI-compatible chat completions endpoint
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	http        *http.Client
	metrics     *metrics.Metrics
}

// NewClient creates a chat-completion client from configuration
func NewClient(cfg *config.AIConfig, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: m,
	}
}

type chatRequest struct {
	Model       string  `json:"model"`
	Messages    []Turn  `json:"messages"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements ChatCompleter
func (c *Client) Complete(ctx context.Context, systemPrompt string, turns []Turn) (string, error) {
	messages := make([]Turn, 0, len(turns)+1)
	messages = append(messages, Turn{Role: "system", Content: systemPrompt})
	messages = append(messages, turns...)

	payload := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("error", start)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.observe("error", start)
		return "", fmt.Errorf("chat completion status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.observe("error", start)
		return "", err
	}

	if len(out.Choices) == 0 {
		c.observe("empty", start)
		return "", errors.New("empty completion")
	}

	c.observe("ok", start)
	return out.Choices[0].Message.Content, nil
}

func (c *Client) observe(status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.AIRequests.WithLabelValues(status).Inc()
	c.metrics.AILatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
}
