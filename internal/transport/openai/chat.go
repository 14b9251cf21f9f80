package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/tripwise/internal/domain"
)

// ChatProvider is a domain.Generator backed by an OpenAI-compatible chat completion endpoint.
type ChatProvider struct {
	client  *openai.Client
	name    string
	model   string
	timeout time.Duration
}

// ChatConfig holds the chat provider settings.
type ChatConfig struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewChatProvider creates a chat completion provider.
func NewChatProvider(cfg *ChatConfig) *ChatProvider {
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	return &ChatProvider{
		client:  newClient(cfg.APIKey, cfg.BaseURL),
		name:    name,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Name identifies the provider in logs and metrics.
func (p *ChatProvider) Name() string { return p.name }

// Generate runs one chat completion and returns the first choice's text.
func (p *ChatProvider) Generate(ctx context.Context, c domain.Completion) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if c.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: c.Prompt})

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
	if c.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", parseAPIError(err, domain.ErrGenerationFailed)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices: %w", p.name, domain.ErrGenerationFailed)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%s returned empty content: %w", p.name, domain.ErrGenerationFailed)
	}
	return text, nil
}
