package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result  EmbeddingResult
	err     error
	got     string
	gotTask TaskType
}

func (s *stubEmbedder) Embed(_ context.Context, text string, task TaskType) (EmbeddingResult, error) {
	s.got = text
	s.gotTask = task
	return s.result, s.err
}

func TestInstructionEmbedder_PrependsPerTask(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, map[TaskType]string{
		TaskDocument: "search_document: ",
		TaskQuery:    "search_query: ",
	})

	result, err := emb.Embed(context.Background(), "yoga Rishikesh", TaskQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "search_query: yoga Rishikesh" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if inner.gotTask != TaskQuery {
		t.Errorf("task = %q, want query", inner.gotTask)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}

	if _, err := emb.Embed(context.Background(), "Goa", TaskDocument); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "search_document: Goa" {
		t.Errorf("got %q", inner.got)
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, nil)

	_, err := emb.Embed(context.Background(), "hello", TaskDocument)
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_RejectsEmptyText(t *testing.T) {
	inner := &stubEmbedder{}
	emb := NewInstructionEmbedder(inner, nil)

	_, err := emb.Embed(context.Background(), "", TaskQuery)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if inner.got != "" {
		t.Error("provider must not be called for empty text")
	}
}

func TestUnconfigured(t *testing.T) {
	var u Unconfigured
	_, err := u.Embed(context.Background(), "x", TaskQuery)
	if !errors.Is(err, ErrUnconfigured) {
		t.Errorf("expected ErrUnconfigured, got %v", err)
	}
	if IsConfigured(u) {
		t.Error("Unconfigured must report not configured")
	}
	if !IsConfigured(&stubEmbedder{}) {
		t.Error("embedders without a reporter are assumed configured")
	}
	if IsConfigured(NewInstructionEmbedder(u, nil)) {
		t.Error("decorator must proxy configuration state")
	}
}

func TestSourceError(t *testing.T) {
	err := NewSourceError("wikipedia", 503, nil)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Error("expected ErrSourceUnavailable")
	}
	if err.Error() != "source unavailable: source wikipedia returned 503" {
		t.Errorf("Error() = %q", err.Error())
	}
	cause := context.DeadlineExceeded
	err = NewSourceError("nominatim", 0, cause)
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause")
	}
}
