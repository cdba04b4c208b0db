package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/yegors/driverops/internal/ai"
	"github.com/yegors/driverops/pkg/logger"
)

// Client represents a Google Gemini API client
type Client struct {
	genai  *genai.Client
	logger *logger.Logger
}

// NewClient creates a new Gemini client. baseURL overrides the API endpoint
// and is normally empty.
func NewClient(ctx context.Context, apiKey, baseURL string, log *logger.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{
		genai:  client,
		logger: log.Named("gemini"),
	}, nil
}

// ChatCompletion implements ai.ChatProvider. System messages become the
// system instruction; assistant turns map to the model role.
func (c *Client) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	var contents []*genai.Content
	var system []string

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			system = append(system, msg.Content)
		case ai.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("gemini chat needs at least one user message")
	}

	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(config.Temperature)),
	}
	if config.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(config.MaxTokens)
	}
	if len(system) > 0 {
		gc.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	c.logger.Debug("Sending Gemini chat request",
		logger.String("model", config.Model),
		logger.Int("messages", len(contents)))

	resp, err := c.genai.Models.GenerateContent(ctx, config.Model, contents, gc)
	if err != nil {
		return "", fmt.Errorf("gemini chat failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}
