package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tripwise/internal/domain"
)

// Batcher embeds many texts with bounded concurrency. Texts are processed in
// windows of `concurrency` items, with a fixed pause between windows so the
// provider's rate limit is respected. It is also a plain domain.Embedder.
type Batcher struct {
	inner       domain.Embedder
	pool        *ants.Pool
	concurrency int
	delay       time.Duration
	logger      *zap.Logger
}

// NewBatcher creates a batcher with its own worker pool. Call Release when done.
func NewBatcher(inner domain.Embedder, concurrency int, delay time.Duration, logger *zap.Logger) (*Batcher, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, fmt.Errorf("embedding pool: %w", err)
	}
	return &Batcher{
		inner:       inner,
		pool:        pool,
		concurrency: concurrency,
		delay:       delay,
		logger:      logger,
	}, nil
}

// Release frees the worker pool.
func (b *Batcher) Release() {
	b.pool.Release()
}

// Embed delegates a single text to the inner embedder.
func (b *Batcher) Embed(ctx context.Context, text string, task domain.TaskType) (domain.EmbeddingResult, error) {
	return b.inner.Embed(ctx, text, task) //nolint:wrapcheck // transparent decorator
}

// BatchEmbed embeds every text. A failed item leaves a nil vector and its
// error in Errs; only context cancellation fails the whole batch.
func (b *Batcher) BatchEmbed(
	ctx context.Context, texts []string, task domain.TaskType,
) (domain.BatchEmbeddingResult, error) {
	res := domain.BatchEmbeddingResult{
		Embeddings: make([][]float32, len(texts)),
		Errs:       make([]error, len(texts)),
	}
	if len(texts) == 0 {
		return res, nil
	}

	var mu sync.Mutex
	for start := 0; start < len(texts); start += b.concurrency {
		if start > 0 && b.delay > 0 {
			if err := sleep(ctx, b.delay); err != nil {
				return res, fmt.Errorf("batch embed interrupted at %d/%d: %w", start, len(texts), err)
			}
		}
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("batch embed interrupted at %d/%d: %w", start, len(texts), err)
		}

		end := min(start+b.concurrency, len(texts))
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			submitErr := b.pool.Submit(func() {
				defer wg.Done()
				r, err := b.inner.Embed(ctx, texts[i], task)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					res.Errs[i] = err
					return
				}
				res.Embeddings[i] = r.Embedding
				res.PromptTokens += r.PromptTokens
				res.TotalTokens += r.TotalTokens
			})
			if submitErr != nil {
				wg.Done()
				mu.Lock()
				res.Errs[i] = fmt.Errorf("submit: %w", submitErr)
				mu.Unlock()
			}
		}
		wg.Wait()
	}

	failed := 0
	for _, err := range res.Errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		b.logger.Warn("Batch embedding finished with failures",
			zap.Int("batch_size", len(texts)),
			zap.Int("failed", failed),
			zap.String("task", string(task)),
		)
	}
	return res, nil
}

// Configured proxies the inner embedder's configuration state.
func (b *Batcher) Configured() bool {
	return domain.IsConfigured(b.inner)
}

// HealthCheck proxies to the inner embedder when it supports health checks.
func (b *Batcher) HealthCheck(ctx context.Context) error {
	if hc, ok := b.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // context error
	case <-t.C:
		return nil
	}
}
