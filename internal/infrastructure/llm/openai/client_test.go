package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/strataworks/geoassist/internal/core/domain"
)

func newTestClient(serverURL string) *Client {
	return New(Config{
		APIKey:              "test-key",
		BaseURL:             serverURL + "/v1",
		ChatModel:           "gpt-5-mini",
		EmbedModel:          "text-embedding-3-large",
		SystemPrompt:        "You are a geotechnical engineering assistant.",
		MaxCompletionTokens: 3000,
		MaxRetries:          3,
	})
}

func writeChatCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-5-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	})
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "api_error"},
	})
}

func TestGenerateFromPromptSendsSystemAndUserMessages(t *testing.T) {
	var gotReq struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		MaxCompletionTokens int `json:"max_completion_tokens"`
		ResponseFormat      *struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeChatCompletion(w, "  Осадка фундамента составит 4 см.  ")
	}))
	defer server.Close()

	generator := NewGenerator(newTestClient(server.URL))
	answer, err := generator.GenerateFromPrompt(context.Background(), "Какова осадка фундамента?")
	if err != nil {
		t.Fatalf("GenerateFromPrompt() error = %v", err)
	}
	if answer != "Осадка фундамента составит 4 см." {
		t.Fatalf("expected trimmed answer, got %q", answer)
	}

	if gotReq.Model != "gpt-5-mini" {
		t.Fatalf("unexpected model %q", gotReq.Model)
	}
	if gotReq.MaxCompletionTokens != 3000 {
		t.Fatalf("unexpected max_completion_tokens %d", gotReq.MaxCompletionTokens)
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Fatalf("unexpected roles %q, %q", gotReq.Messages[0].Role, gotReq.Messages[1].Role)
	}
	if gotReq.ResponseFormat != nil {
		t.Fatalf("plain generation must not force a response format")
	}
}

func TestGenerateJSONFromPromptSetsResponseFormat(t *testing.T) {
	var gotFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ResponseFormat *struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.ResponseFormat != nil {
			gotFormat = req.ResponseFormat.Type
		}
		writeChatCompletion(w, `{"action":"retrieve","reasoning":"lookup"}`)
	}))
	defer server.Close()

	generator := NewGenerator(newTestClient(server.URL))
	out, err := generator.GenerateJSONFromPrompt(context.Background(), "plan this")
	if err != nil {
		t.Fatalf("GenerateJSONFromPrompt() error = %v", err)
	}
	if gotFormat != "json_object" {
		t.Fatalf("expected json_object response format, got %q", gotFormat)
	}
	if out == "" {
		t.Fatalf("expected planner output")
	}
}

func TestCompleteRetriesRateLimitThenSucceeds(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			writeAPIError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		writeChatCompletion(w, "ответ")
	}))
	defer server.Close()

	generator := NewGenerator(newTestClient(server.URL))
	answer, err := generator.GenerateFromPrompt(context.Background(), "вопрос")
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if answer != "ответ" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestCompleteDoesNotRetryBadRequest(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		writeAPIError(w, http.StatusBadRequest, "invalid request")
	}))
	defer server.Close()

	generator := NewGenerator(newTestClient(server.URL))
	_, err := generator.GenerateFromPrompt(context.Background(), "вопрос")
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent rejection must not carry temporary kind: %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
}

func TestCompleteExhaustsRetriesAndMarksTemporary(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		writeAPIError(w, http.StatusServiceUnavailable, "overloaded")
	}))
	defer server.Close()

	generator := NewGenerator(newTestClient(server.URL))
	_, err := generator.GenerateFromPrompt(context.Background(), "вопрос")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind after exhausted retries, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestEmbedQueryParsesVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "text-embedding-3-large" {
			t.Errorf("unexpected model %q", req.Model)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
			},
			"model": "text-embedding-3-large",
		})
	}))
	defer server.Close()

	embedder := NewEmbedder(newTestClient(server.URL))
	vector, err := embedder.EmbedQuery(context.Background(), "несущая способность")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 3 || vector[0] != 0.1 {
		t.Fatalf("unexpected vector %v", vector)
	}
}

func TestEmbedQueryRejectsEmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected for empty text")
	}))
	defer server.Close()

	embedder := NewEmbedder(newTestClient(server.URL))
	_, err := embedder.EmbedQuery(context.Background(), "   ")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
}
