package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scenecast/internal/config"
)

const userAgent = "scenecast/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyRunCompleted(ctx context.Context, runID, prompt, artifactPath string, elapsed time.Duration) error
	NotifyRunFailed(ctx context.Context, runID, prompt, stage string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		onSuccess: cfg.Notifications.NotifyOnSuccess,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onSuccess bool
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, runID, prompt, artifactPath string, elapsed time.Duration) error {
	if !n.onSuccess {
		return nil
	}
	elapsed = elapsed.Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	message := fmt.Sprintf("✅ Video ready: %s\nFile: %s\nTook %s", summarizePrompt(prompt), strings.TrimSpace(artifactPath), elapsed)
	return n.send(ctx, payload{
		title:   "scenecast - Video Ready",
		message: message,
		tags:    []string{"scenecast", "run", "completed", shortRunID(runID)},
	})
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, runID, prompt, stage string, err error) error {
	var builder strings.Builder
	builder.WriteString("❌ Generation failed")
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" during ")
		builder.WriteString(stage)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	builder.WriteString("\nPrompt: ")
	builder.WriteString(summarizePrompt(prompt))

	return n.send(ctx, payload{
		title:    "scenecast - Error",
		message:  builder.String(),
		tags:     []string{"scenecast", "error", shortRunID(runID)},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "scenecast - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"scenecast", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if tags := compact(data.tags); len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func summarizePrompt(prompt string) string {
	clean := strings.Join(strings.Fields(prompt), " ")
	const limit = 80
	if runes := []rune(clean); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}

func shortRunID(runID string) string {
	runID = strings.TrimSpace(runID)
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}

func compact(values []string) []string {
	var out []string
	for _, value := range values {
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, string, string, string, time.Duration) error {
	return nil
}
func (noopService) NotifyRunFailed(context.Context, string, string, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
