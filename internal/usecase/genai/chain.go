package genai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tripwise/internal/domain"
	"github.com/kailas-cloud/tripwise/internal/metrics"
)

// Task is one generative request routed through the chain.
type Task struct {
	// Name labels metrics and logs, e.g. "enrich" or "recommendations".
	Name       string
	Completion domain.Completion
	// Validate checks the extracted JSON object for JSON tasks. A failing
	// response advances the chain like a provider error.
	Validate func(obj string) error
	// Fallback is the deterministic response served when every provider fails.
	Fallback string
}

// Result is the chain's answer.
type Result struct {
	Text     string
	Provider string
	// Fallback marks the deterministic canned response.
	Fallback bool
}

// Chain tries providers in order and never fails.
type Chain struct {
	providers []domain.Generator
	logger    *zap.Logger
}

// NewChain creates a chain. The first provider is primary; later ones receive
// a reshaped prompt with the system instruction folded into the user text.
func NewChain(logger *zap.Logger, providers ...domain.Generator) *Chain {
	return &Chain{
		providers: providers,
		logger:    logger.With(zap.String("component", "genai")),
	}
}

// Providers returns provider names in attempt order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Run executes the task. For JSON completions Text holds the extracted object.
// A cancelled context stops the chain and serves the fallback.
func (c *Chain) Run(ctx context.Context, task Task) Result {
	for i, p := range c.providers {
		if ctx.Err() != nil {
			break
		}
		comp := task.Completion
		if i > 0 {
			comp = reshape(comp)
		}

		text, err := c.attempt(ctx, p, task, comp)
		if err == nil {
			return Result{Text: text, Provider: p.Name()}
		}
		c.logger.Warn("Generation attempt failed",
			zap.String("task", task.Name),
			zap.String("provider", p.Name()),
			zap.Int("position", i),
			zap.Error(err),
		)
	}

	metrics.GenerationFallbackTotal.WithLabelValues(task.Name).Inc()
	return Result{Text: task.Fallback, Provider: "fallback", Fallback: true}
}

func (c *Chain) attempt(ctx context.Context, p domain.Generator, task Task, comp domain.Completion) (string, error) {
	start := time.Now()
	text, err := p.Generate(ctx, comp)
	metrics.GenerationDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationAttemptsTotal.WithLabelValues(p.Name(), "error").Inc()
		return "", fmt.Errorf("generate: %w", err)
	}

	out, err := accept(text, task, comp)
	if err != nil {
		metrics.GenerationAttemptsTotal.WithLabelValues(p.Name(), "invalid").Inc()
		return "", err
	}
	metrics.GenerationAttemptsTotal.WithLabelValues(p.Name(), "ok").Inc()
	return out, nil
}

func accept(text string, task Task, comp domain.Completion) (string, error) {
	if !comp.JSON {
		if text == "" {
			return "", fmt.Errorf("empty response: %w", domain.ErrInvalidGeneration)
		}
		return text, nil
	}
	obj, err := ExtractJSON(text)
	if err != nil {
		return "", err
	}
	if task.Validate != nil {
		if err := task.Validate(obj); err != nil {
			if errors.Is(err, domain.ErrInvalidGeneration) {
				return "", err
			}
			return "", fmt.Errorf("%w: %w", domain.ErrInvalidGeneration, err)
		}
	}
	return obj, nil
}

// reshape folds the system instruction into the prompt for secondary providers
// and restates the output contract at the end.
func reshape(c domain.Completion) domain.Completion {
	prompt := c.Prompt
	if c.System != "" {
		prompt = "Instructions:\n" + c.System + "\n\nTask:\n" + c.Prompt
	}
	if c.JSON {
		prompt += "\n\nRespond with a single JSON object and nothing else."
	}
	c.System = ""
	c.Prompt = prompt
	return c
}
