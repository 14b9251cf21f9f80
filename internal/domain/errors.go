package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals a malformed request or record.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnconfigured signals a missing credential. Callers branch to demo behavior on it.
	ErrUnconfigured = errors.New("provider not configured")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmptyEmbedding signals a provider that answered with an empty vector.
	ErrEmptyEmbedding = errors.New("empty embedding")
	// ErrVectorDimMismatch signals a vector whose dimension differs from the store's.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrGenerationFailed signals a generative provider failure.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrInvalidGeneration signals a completion that failed JSON/schema validation.
	ErrInvalidGeneration = errors.New("invalid generation")
	// ErrPersistence signals a storage failure. It is the only error class acquisition propagates.
	ErrPersistence = errors.New("persistence failure")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrSourceUnavailable signals an external data source failure.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrPipelineRunning signals that a pipeline run is already in progress.
	ErrPipelineRunning = errors.New("pipeline already running")
)

// SourceError wraps ErrSourceUnavailable with the source name and HTTP status.
type SourceError struct {
	Source string
	Status int
	Err    error
}

func (e *SourceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: source %s returned %d", ErrSourceUnavailable.Error(), e.Source, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: source %s: %v", ErrSourceUnavailable.Error(), e.Source, e.Err)
	}
	return fmt.Sprintf("%s: source %s", ErrSourceUnavailable.Error(), e.Source)
}

func (e *SourceError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSourceUnavailable, e.Err}
	}
	return []error{ErrSourceUnavailable}
}

// NewSourceError creates a source failure error.
func NewSourceError(source string, status int, err error) error {
	return &SourceError{Source: source, Status: status, Err: err}
}
