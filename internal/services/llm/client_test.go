package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func completionHandler(t *testing.T, content string, inspect func(chatCompletionRequest)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if inspect != nil {
			inspect(req)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, `{"ok":true}`, nil))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "```json\n{\"ok\":true}\n```", nil))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestGenerateTextSendsHintAndHeaders(t *testing.T) {
	var gotAuth, gotTitle string
	var gotReq chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTitle = r.Header.Get("X-Title")
		completionHandler(t, "  class ExplanationScene(Scene): pass  ", func(req chatCompletionRequest) { gotReq = req })(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL, Model: "google/gemini-2.5-flash", Title: "scenecast"})
	text, err := client.GenerateText(context.Background(), "explain recursion", ResponseHint{MIMEType: MIMEPython, Description: "a Manim scene"})
	if err != nil {
		t.Fatalf("GenerateText returned error: %v", err)
	}
	if text != "class ExplanationScene(Scene): pass" {
		t.Fatalf("unexpected text %q", text)
	}
	if gotAuth != "Bearer secret" || gotTitle != "scenecast" {
		t.Fatalf("unexpected headers auth=%q title=%q", gotAuth, gotTitle)
	}
	if gotReq.Model != "google/gemini-2.5-flash" || len(gotReq.Messages) != 2 {
		t.Fatalf("unexpected request %+v", gotReq)
	}
	if !strings.Contains(gotReq.Messages[0].Content, "raw Python source") || !strings.Contains(gotReq.Messages[0].Content, "a Manim scene") {
		t.Fatalf("system prompt missing hint: %q", gotReq.Messages[0].Content)
	}
	if gotReq.Messages[1].Content != "explain recursion" {
		t.Fatalf("unexpected user message %q", gotReq.Messages[1].Content)
	}
	if gotReq.ResponseFormat != nil {
		t.Fatalf("expected no response format for python hint, got %v", gotReq.ResponseFormat)
	}
}

func TestGenerateTextRequiresPromptAndKey(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})
	if _, err := client.GenerateText(context.Background(), "  ", ResponseHint{}); err == nil {
		t.Fatal("expected error for blank prompt")
	}
	client = NewClient(Config{})
	if _, err := client.GenerateText(context.Background(), "hi", ResponseHint{}); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		completionHandler(t, "narration text", nil)(w, r)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	text, err := client.GenerateText(context.Background(), "prompt", ResponseHint{})
	if err != nil {
		t.Fatalf("GenerateText returned error: %v", err)
	}
	if text != "narration text" {
		t.Fatalf("unexpected text %q", text)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		content := ""
		if calls >= 3 {
			content = "done"
		}
		completionHandler(t, content, nil)(w, r)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	text, err := client.GenerateText(context.Background(), "prompt", ResponseHint{})
	if err != nil {
		t.Fatalf("GenerateText returned error: %v", err)
	}
	if text != "done" || calls != 3 {
		t.Fatalf("unexpected result %q after %d calls", text, calls)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	if _, err := client.GenerateText(context.Background(), "prompt", ResponseHint{}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestClientEmptyContentExhaustsWithSnippet(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "", nil))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL},
		WithRetryMaxAttempts(2), WithRetryBackoff(0, 0), WithSleeper(func(time.Duration) {}))
	_, err := client.GenerateText(context.Background(), "prompt", ResponseHint{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "failed after 2 attempts") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```python\nprint(1)\n```":  "print(1)",
		"```\nprint(1)\n```":        "print(1)",
		"print(1)":                  "print(1)",
		"```json\n{\"ok\":true}```": `{"ok":true}`,
	}
	for input, want := range cases {
		if got := StripCodeFence(input); got != want {
			t.Fatalf("StripCodeFence(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDecodeLLMJSONExtractsObject(t *testing.T) {
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(`Sure! {"ok": true} hope that helps`, &parsed); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if !parsed.OK {
		t.Fatal("expected ok=true")
	}
	if err := DecodeLLMJSON("", &parsed); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
