// Package llm provides the language-model client used for intent extraction
// and prose generation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4-turbo-preview"

	requestTimeout = 60 * time.Second

	defaultRateRequests = 100
	defaultRateWindow   = time.Minute
)

// Config holds connection settings for an OpenAI-compatible completion API.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxRequests int // per RateWindow
	RateWindow  time.Duration
}

// OpenAIClient calls an OpenAI-style chat-completions endpoint under a
// client-side rate limit.
type OpenAIClient struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewOpenAIClient builds the client, applying defaults for model, base URL
// and rate limit.
func NewOpenAIClient(config Config, logger *zap.Logger) *OpenAIClient {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}

	if config.Model == "" {
		config.Model = defaultModel
	}

	if config.MaxRequests <= 0 {
		config.MaxRequests = defaultRateRequests
	}

	if config.RateWindow <= 0 {
		config.RateWindow = defaultRateWindow
	}

	limit := rate.Every(config.RateWindow / time.Duration(config.MaxRequests))

	return &OpenAIClient{
		config:  config,
		client:  &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(limit, config.MaxRequests),
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete issues one completion call. The returned text is the raw model
// output with surrounding whitespace intact.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", errRateLimited, err)
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}

	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errCompletion, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", errCompletion, resp.StatusCode)
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %w", errCompletion, err)
	}

	if len(payload.Choices) == 0 {
		return "", errNoChoices
	}

	return payload.Choices[0].Message.Content, nil
}
