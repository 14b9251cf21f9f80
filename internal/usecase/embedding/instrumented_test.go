package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tripwise/internal/domain"
)

type mockEmbedder struct {
	mu     sync.Mutex
	result domain.EmbeddingResult
	err    error
	failOn map[string]error
	texts  []string
	active atomic.Int32
	peak   atomic.Int32
	hold   time.Duration
}

func (m *mockEmbedder) Embed(_ context.Context, text string, _ domain.TaskType) (domain.EmbeddingResult, error) {
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.hold > 0 {
		time.Sleep(m.hold)
	}
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if err, ok := m.failOn[text]; ok {
		return domain.EmbeddingResult{}, err
	}
	return m.result, m.err
}

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	result, err := p.Embed(context.Background(), "hello", domain.TaskQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(result.Embedding))
	}
}

func TestInstrumentedEmbedder_EmptyText(t *testing.T) {
	inner := &mockEmbedder{}
	p := NewInstrumentedEmbedder(inner, "test", "m", zap.NewNop())

	_, err := p.Embed(context.Background(), "", domain.TaskQuery)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(inner.texts) != 0 {
		t.Fatal("provider must not be called for empty text")
	}
}

func TestInstrumentedEmbedder_EmptyVector(t *testing.T) {
	p := NewInstrumentedEmbedder(&mockEmbedder{}, "test", "m", zap.NewNop())

	_, err := p.Embed(context.Background(), "hello", domain.TaskDocument)
	if !errors.Is(err, domain.ErrEmptyEmbedding) {
		t.Fatalf("expected ErrEmptyEmbedding, got %v", err)
	}
}

func TestInstrumentedEmbedder_Unconfigured(t *testing.T) {
	p := NewInstrumentedEmbedder(domain.Unconfigured{}, "none", "", zap.NewNop())

	_, err := p.Embed(context.Background(), "hello", domain.TaskQuery)
	if !errors.Is(err, domain.ErrUnconfigured) {
		t.Fatalf("expected ErrUnconfigured, got %v", err)
	}
	if p.Configured() {
		t.Fatal("expected Configured() = false")
	}
}

func TestInstrumentedEmbedder_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	p := NewInstrumentedEmbedder(inner, "test", "m", zap.NewNop())

	_, err := p.Embed(context.Background(), "hello", domain.TaskQuery)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}
