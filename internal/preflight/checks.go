package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sys/unix"

	"scenecast/internal/config"
	"scenecast/internal/deps"
	"scenecast/internal/services/llm"
	"scenecast/internal/services/openaichat"
)

// HealthChecker is a model backend that can verify its credentials.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckLLM verifies that the model API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	checker, err := healthChecker(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return CheckHealth(ctx, name, checker)
}

// CheckHealth runs checker under the preflight timeout.
func CheckHealth(ctx context.Context, name string, checker HealthChecker) Result {
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := checker.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

func healthChecker(cfg config.LLMConfig) (HealthChecker, error) {
	switch cfg.Provider {
	case config.ProviderOpenRouter, "":
		return llm.NewClient(llm.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Referer: cfg.Referer,
			Title:   cfg.Title,
		}, llm.WithRetryMaxAttempts(1)), nil
	case config.ProviderOpenAI, config.ProviderGemini:
		return openaichat.New(openaichat.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}, option.WithMaxRetries(0)), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external tools a run shells out to. Both the
// server and the CLI status command use this to avoid duplicating the
// requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "Manim",
			Command:     cfg.Renderer.Binary,
			Description: "Required for rendering animations",
		},
		{
			Name:        "gTTS",
			Command:     cfg.Speech.Binary,
			Description: "Required for narration speech",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpeg.Binary,
			Description: "Required for tempo adjustment and muxing",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFmpeg.ProbeBinary,
			Description: "Required for media duration probing",
		},
	})
}

// CheckArchive reports whether artifact archiving is configured.
func CheckArchive(cfg config.Archive) Result {
	const name = "Archive"
	if !cfg.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return Result{Name: name, Detail: "Missing bucket"}
	}
	target := "s3://" + bucket
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		target += " via " + endpoint
	}
	return Result{Name: name, Passed: true, Detail: target}
}

// summarizeLLMError produces a human-readable summary for model health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
