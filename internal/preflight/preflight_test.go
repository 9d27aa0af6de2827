package preflight

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scenecast/internal/config"
	"scenecast/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckLLM_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), "LLM", config.LLMConfig{
		Provider: config.ProviderOpenRouter,
		APIKey:   "good-key",
		BaseURL:  srv.URL,
		Model:    "demo",
	})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckLLM_BadKeySingleAttempt(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), "LLM", config.LLMConfig{
		Provider: config.ProviderOpenRouter,
		APIKey:   "bad-key",
		BaseURL:  srv.URL,
	})
	if result.Passed {
		t.Fatal("expected failure for server error")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), "LLM", config.LLMConfig{Provider: config.ProviderOpenAI})
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckLLM_UnknownProvider(t *testing.T) {
	result := CheckLLM(context.Background(), "LLM", config.LLMConfig{Provider: "carrier-pigeon", APIKey: "k"})
	if result.Passed || !strings.Contains(result.Detail, "carrier-pigeon") {
		t.Fatalf("unexpected result %+v", result)
	}
}

type checkerFunc func(context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestCheckHealthSummarizesTimeout(t *testing.T) {
	result := CheckHealth(context.Background(), "LLM", checkerFunc(func(context.Context) error {
		return context.DeadlineExceeded
	}))
	if result.Passed || !strings.Contains(result.Detail, "timed out") {
		t.Fatalf("unexpected result %+v", result)
	}
	result = CheckHealth(context.Background(), "LLM", checkerFunc(func(context.Context) error {
		return errors.New("unauthorized")
	}))
	if result.Detail != "unauthorized" {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckArchive(t *testing.T) {
	if r := CheckArchive(config.Archive{}); !r.Passed || r.Detail != "Disabled" {
		t.Fatalf("unexpected disabled result %+v", r)
	}
	if r := CheckArchive(config.Archive{Enabled: true}); r.Passed {
		t.Fatal("expected failure without bucket")
	}
	r := CheckArchive(config.Archive{Enabled: true, Bucket: "videos", Endpoint: "http://minio:9000"})
	if !r.Passed || r.Detail != "s3://videos via http://minio:9000" {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_StubbedTools(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	// work, output, state directories plus four tools
	if len(results) != 7 {
		t.Fatalf("expected 7 results, got %d", len(results))
	}
	if err := Error(results); err != nil {
		t.Fatalf("expected all checks to pass: %v", err)
	}
}

func TestRunAll_ReportsMissingTool(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("gtts-cli", "ffmpeg", "ffprobe"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	cfg.Renderer.Binary = "definitely-not-manim"

	results := RunAll(context.Background(), cfg)
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Manim" {
		t.Fatalf("expected only Manim to fail, got %+v", failed)
	}
	if err := Error(results); err == nil || !strings.Contains(err.Error(), "Manim") {
		t.Fatalf("unexpected error %v", err)
	}
}
