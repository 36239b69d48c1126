package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "google", Model: "gemini-1.5-pro"})
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
	if !strings.Contains(err.Error(), "unknown provider") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewRequiresModel(t *testing.T) {
	if _, err := New(Config{Provider: ProviderOpenAI}); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := New(Config{Provider: ProviderOpenAI, Model: "gpt-4o-mini"}); err == nil {
		t.Fatal("expected error when OPENAI_API_KEY is unset")
	}
}

func TestAnthropicComplete(t *testing.T) {
	var gotPath, gotKey, gotVersion string
	var gotReq anthropicRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "claude-3-5-haiku-20241022",
			"content": [{"type": "text", "text": "Net leverage is "}, {"type": "text", "text": "3.1x."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 812, "output_tokens": 47}
		}`))
	}))
	defer srv.Close()

	client := newAnthropicClient(Config{
		Provider:    ProviderAnthropic,
		Model:       "claude-3-5-haiku-20241022",
		MaxTokens:   1024,
		Temperature: 0,
		BaseURL:     srv.URL,
	}, "test-key")

	resp, err := client.Complete(context.Background(), "What is net leverage?", "Answer from the documents only.")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if gotPath != "/v1/messages" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" || gotVersion == "" {
		t.Errorf("auth headers missing: key=%q version=%q", gotKey, gotVersion)
	}
	if gotReq.System == "" || len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("unexpected request payload: %+v", gotReq)
	}

	if resp.Content != "Net leverage is 3.1x." {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.InputTokens != 812 || resp.OutputTokens != 47 {
		t.Errorf("tokens = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
	if resp.StopReason != "end_turn" {
		t.Errorf("stop reason = %q", resp.StopReason)
	}
	if resp.LatencyMs < 0 {
		t.Errorf("latency = %d", resp.LatencyMs)
	}
	if resp.Timestamp == "" {
		t.Error("expected a timestamp")
	}
	if resp.Cached {
		t.Error("fresh response must not be marked cached")
	}
}

func TestAnthropicErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newAnthropicClient(Config{Model: "claude-3-opus-20240229", MaxTokens: 64, BaseURL: srv.URL}, "k")
	if _, err := client.Complete(context.Background(), "q", ""); err == nil {
		t.Fatal("expected error for non-200 status")
	} else if !strings.Contains(err.Error(), "503") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Revenue was $10M."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 420, "completion_tokens": 12, "total_tokens": 432}
		}`))
	}))
	defer srv.Close()

	client := newOpenAIClient(Config{
		Provider:  ProviderOpenAI,
		Model:     "gpt-4o-mini",
		MaxTokens: 256,
		BaseURL:   srv.URL,
	}, "test-key")

	resp, err := client.Complete(context.Background(), "What was revenue?", "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Content != "Revenue was $10M." {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.InputTokens != 420 || resp.OutputTokens != 12 {
		t.Errorf("tokens = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
	if resp.StopReason != "stop" {
		t.Errorf("stop reason = %q", resp.StopReason)
	}
}

func TestCacheKeyDeterministic(t *testing.T) {
	cfg := Config{Provider: ProviderOpenAI, Model: "gpt-4o", Temperature: 0.2, MaxTokens: 512}

	a := cacheKey(cfg, "prompt", "system")
	b := cacheKey(cfg, "prompt", "system")
	if a != b {
		t.Fatalf("same inputs produced different keys: %s vs %s", a, b)
	}

	if cacheKey(cfg, "prompt2", "system") == a {
		t.Error("different prompt should change the key")
	}
	cfg.Model = "gpt-4o-mini"
	if cacheKey(cfg, "prompt", "system") == a {
		t.Error("different model should change the key")
	}
}
