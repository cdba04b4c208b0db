// Package openai is a ChatProvider for any OpenAI-compatible
// chat-completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yegors/driverops/internal/ai"
	"github.com/yegors/driverops/pkg/logger"
)

const (
	defaultBaseURL  = "https://api.openai.com"
	completionsPath = "/v1/chat/completions"
)

// Client handles chat completions against an OpenAI-compatible API
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *logger.Logger
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
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// StatusError reports a non-200 reply; Message comes from the API's error body when present
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat completion failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("chat completion failed with status %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a client. An empty baseURL falls back to OPENAI_API_BASE,
// then to the public API.
func NewClient(apiKey string, log *logger.Logger, baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = strings.TrimRight(os.Getenv("OPENAI_API_BASE"), "/")
	}
	if base == "" {
		base = defaultBaseURL
	}

	return &Client{
		apiKey:     apiKey,
		endpoint:   base + completionsPath,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log.Named("openai"),
	}
}

// ChatCompletion implements ai.ChatProvider
func (c *Client) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	payload := chatRequest{
		Model:       config.Model,
		Messages:    make([]chatMessage, 0, len(messages)),
		MaxTokens:   config.MaxTokens,
		Temperature: config.Temperature,
	}
	for _, m := range messages {
		payload.Messages = append(payload.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("Sending chat completion request",
		logger.String("model", config.Model),
		logger.Int("messages", len(messages)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	var result chatResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		if decodeErr == nil && result.Error != nil {
			statusErr.Message = result.Error.Message
		}
		return "", statusErr
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", decodeErr)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
