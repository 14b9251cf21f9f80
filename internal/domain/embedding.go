package domain

import (
	"context"
	"fmt"
)

// TaskType tells the embedding provider what the vector will be used for.
type TaskType string

const (
	// TaskDocument embeds corpus content for storage.
	TaskDocument TaskType = "document"
	// TaskQuery embeds a search query.
	TaskQuery TaskType = "query"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string, task TaskType) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string, task TaskType) (BatchEmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConfigurationReporter is implemented by embedders that know whether a credential is present.
type ConfigurationReporter interface {
	Configured() bool
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
// Errs is parallel to Embeddings; a nil entry means the text embedded successfully.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	Errs         []error
	PromptTokens int
	TotalTokens  int
}

// IsConfigured reports whether e has a credential. Embedders that do not report are assumed configured.
func IsConfigured(e Embedder) bool {
	if cr, ok := e.(ConfigurationReporter); ok {
		return cr.Configured()
	}
	return true
}

// ValidateText rejects empty input before it reaches a provider.
func ValidateText(text string) error {
	if text == "" {
		return fmt.Errorf("text is required: %w", ErrInvalidInput)
	}
	return nil
}

// InstructionEmbedder is a domain decorator that prepends a per-task instruction before embedding.
type InstructionEmbedder struct {
	inner        Embedder
	instructions map[TaskType]string
}

// NewInstructionEmbedder creates a decorator. Tasks without an instruction pass through unchanged.
func NewInstructionEmbedder(inner Embedder, instructions map[TaskType]string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instructions: instructions}
}

// Embed prepends the task instruction and delegates to the inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string, task TaskType) (EmbeddingResult, error) {
	if err := ValidateText(text); err != nil {
		return EmbeddingResult{}, err
	}
	result, err := e.inner.Embed(ctx, e.instructions[task]+text, task)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// Configured proxies the inner embedder's configuration state.
func (e *InstructionEmbedder) Configured() bool {
	return IsConfigured(e.inner)
}

// HealthCheck proxies to the inner embedder when it supports health checks.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

// Unconfigured is the embedder used when no credential is present.
// Every call returns ErrUnconfigured so callers can switch to demo behavior.
type Unconfigured struct{}

// Embed always reports the unconfigured state.
func (Unconfigured) Embed(context.Context, string, TaskType) (EmbeddingResult, error) {
	return EmbeddingResult{}, ErrUnconfigured
}

// Configured returns false.
func (Unconfigured) Configured() bool { return false }
