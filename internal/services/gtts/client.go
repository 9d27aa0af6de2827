package gtts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scenecast/internal/services/process"
)

// TextFileName is the scratch file handed to gtts-cli via --file.
const TextFileName = "narration.txt"

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec process.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps the gtts-cli speech synthesizer.
type Client struct {
	binary  string
	timeout time.Duration
	exec    process.Executor
}

// New constructs a gtts-cli client. timeoutSeconds <= 0 disables the limit.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("gtts binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    process.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Synthesize speaks text in language and writes MP3 audio to outPath. The text
// is passed through a scratch file beside outPath to avoid argv limits.
func (c *Client) Synthesize(ctx context.Context, text, language, outPath string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("gtts synthesize: empty text")
	}
	if strings.TrimSpace(outPath) == "" {
		return errors.New("gtts synthesize: output path required")
	}
	if strings.TrimSpace(language) == "" {
		language = "en"
	}
	textPath := filepath.Join(filepath.Dir(outPath), TextFileName)
	if err := os.WriteFile(textPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("gtts synthesize: write text: %w", err)
	}
	defer os.Remove(textPath)

	_, err := c.exec.Run(ctx, process.Command{
		Binary:  c.binary,
		Args:    []string{"--file", textPath, "--lang", language, "--output", outPath},
		Timeout: c.timeout,
	}, nil)
	if err != nil {
		return err
	}
	if info, statErr := os.Stat(outPath); statErr != nil || info.Size() == 0 {
		return fmt.Errorf("gtts synthesize: no audio written to %s", outPath)
	}
	return nil
}
