// Package langchain adapts a langchaingo chat model to domain.Generator.
// It serves as the secondary provider in the generation chain.
package langchain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/kailas-cloud/tripwise/internal/domain"
)

// Config holds the secondary provider settings.
type Config struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Provider is a domain.Generator over any llms.Model.
type Provider struct {
	model   llms.Model
	name    string
	timeout time.Duration
}

// New creates a provider against an OpenAI-compatible endpoint.
func New(cfg *Config) (*Provider, error) {
	opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("langchain openai client: %w", err)
	}
	return NewWithModel(model, cfg.Name, cfg.Timeout), nil
}

// NewWithModel wraps an existing model.
func NewWithModel(model llms.Model, name string, timeout time.Duration) *Provider {
	if name == "" {
		name = "langchain"
	}
	return &Provider{model: model, name: name, timeout: timeout}
}

// Name identifies the provider in logs and metrics.
func (p *Provider) Name() string { return p.name }

// Generate runs one completion and returns the first choice's text.
func (p *Provider) Generate(ctx context.Context, c domain.Completion) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	content := make([]llms.MessageContent, 0, 2)
	if c.System != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, c.System))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, c.Prompt))

	var opts []llms.CallOption
	if c.JSON {
		opts = append(opts, llms.WithJSONMode())
	}
	if c.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.MaxTokens))
	}
	opts = append(opts, llms.WithTemperature(float64(c.Temperature)))

	resp, err := p.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("%s generate: %w: %w", p.name, domain.ErrGenerationFailed, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices: %w", p.name, domain.ErrGenerationFailed)
	}
	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", fmt.Errorf("%s returned empty content: %w", p.name, domain.ErrGenerationFailed)
	}
	return text, nil
}
