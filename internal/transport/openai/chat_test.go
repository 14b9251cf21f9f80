package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kailas-cloud/tripwise/internal/domain"
)

func chatServer(t *testing.T, status int, content string, check func(body map[string]any)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if check != nil {
			check(body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "boom"}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestChatProvider_Generate(t *testing.T) {
	server := chatServer(t, http.StatusOK, "  {\"ok\":true}  ", func(body map[string]any) {
		msgs, _ := body["messages"].([]any)
		if len(msgs) != 2 {
			t.Errorf("expected system+user messages, got %d", len(msgs))
		}
		rf, _ := body["response_format"].(map[string]any)
		if rf["type"] != "json_object" {
			t.Errorf("response_format = %v", body["response_format"])
		}
	})

	p := NewChatProvider(&ChatConfig{Name: "primary", APIKey: "k", BaseURL: server.URL, Model: "m"})
	out, err := p.Generate(context.Background(), domain.Completion{System: "be terse", Prompt: "hi", JSON: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"ok":true}` {
		t.Errorf("out = %q", out)
	}
	if p.Name() != "primary" {
		t.Errorf("name = %q", p.Name())
	}
}

func TestChatProvider_ProviderError(t *testing.T) {
	server := chatServer(t, http.StatusInternalServerError, "", nil)
	p := NewChatProvider(&ChatConfig{APIKey: "k", BaseURL: server.URL, Model: "m"})

	_, err := p.Generate(context.Background(), domain.Completion{Prompt: "hi"})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestChatProvider_EmptyContent(t *testing.T) {
	server := chatServer(t, http.StatusOK, "   ", nil)
	p := NewChatProvider(&ChatConfig{APIKey: "k", BaseURL: server.URL, Model: "m"})

	_, err := p.Generate(context.Background(), domain.Completion{Prompt: "hi"})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}
