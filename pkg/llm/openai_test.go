package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIProviderComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Fatalf("unexpected model %q", req.Model)
		}
		if req.Stream {
			t.Fatal("expected non-streaming request")
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	provider := NewOpenAIProvider(Config{APIURL: server.URL, APIKey: "sk-test"})

	content, err := provider.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if content != "hello" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestOpenAIProviderImagesBecomeContentParts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw struct {
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(raw.Messages) != 1 {
			t.Fatalf("unexpected message count %d", len(raw.Messages))
		}
		var parts []openAIContentPart
		if err := json.Unmarshal(raw.Messages[0].Content, &parts); err != nil {
			t.Fatalf("expected content part array: %v", err)
		}
		if len(parts) != 2 || parts[0].Type != "text" || parts[1].Type != "image_url" {
			t.Fatalf("unexpected parts %+v", parts)
		}
		if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,") {
			t.Fatalf("expected data URI, got %q", parts[1].ImageURL.URL)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer server.Close()

	provider := NewOpenAIProvider(Config{APIURL: server.URL, APIKey: "sk-test"})

	if _, err := provider.Complete(context.Background(), []Message{
		{Role: "user", Content: "caption this", Images: []string{"aGVsbG8="}},
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}
}

func TestOpenAIProviderMissingKey(t *testing.T) {
	t.Parallel()

	provider := NewOpenAIProvider(Config{})
	if _, err := provider.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestGrokProviderDefaults(t *testing.T) {
	t.Parallel()

	provider := NewGrokProvider(Config{APIKey: "xai-test"})
	if provider.Name() != "grok" {
		t.Fatalf("unexpected name %q", provider.Name())
	}
	if provider.openai.apiURL != "https://api.x.ai/v1" {
		t.Fatalf("unexpected url %q", provider.openai.apiURL)
	}
	if provider.openai.model != "grok-beta" {
		t.Fatalf("unexpected model %q", provider.openai.model)
	}
}

func TestGrokProviderComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "grok-beta" {
			t.Fatalf("unexpected model %q", req.Model)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"grok says hi"}}]}`)
	}))
	defer server.Close()

	provider := NewGrokProvider(Config{APIURL: server.URL, APIKey: "xai-test"})
	content, err := provider.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if content != "grok says hi" {
		t.Fatalf("unexpected content %q", content)
	}
}
