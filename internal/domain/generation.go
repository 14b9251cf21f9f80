package domain

import "context"

// Completion is one text-generation request.
type Completion struct {
	// System is the instruction framing the task; providers without a system role prepend it.
	System string
	Prompt string
	// JSON asks the provider for a single JSON object.
	JSON        bool
	MaxTokens   int
	Temperature float32
}

// Generator is the capability every generative provider implements.
// Callers never bind to one provider directly; they go through the provider chain.
type Generator interface {
	Name() string
	Generate(ctx context.Context, c Completion) (string, error)
}
