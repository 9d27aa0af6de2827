package manim

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"scenecast/internal/logging"
	"scenecast/internal/services/process"
)

// Request describes one render of a scene script.
type Request struct {
	// WorkDir is the directory manim runs in; ScriptFile is relative to it.
	WorkDir    string
	ScriptFile string
	Scene      string
	OutputStem string
	// MediaDir overrides manim's media root when set.
	MediaDir   string
	LowQuality bool
}

// QualityFlag returns the manim preset flag for the request.
func (r Request) QualityFlag() string {
	if r.LowQuality {
		return "-ql"
	}
	return "-qh"
}

// Args builds the manim command line.
func (r Request) Args() []string {
	args := []string{"--disable_caching", r.QualityFlag()}
	if strings.TrimSpace(r.MediaDir) != "" {
		args = append(args, "--media_dir", r.MediaDir)
	}
	return append(args, r.ScriptFile, r.Scene, "-o", r.OutputStem)
}

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

// WithLogger routes manim output lines to logger at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps the manim CLI.
type Client struct {
	binary  string
	timeout time.Duration
	exec    process.Executor
	logger  *slog.Logger
}

// New constructs a manim client. timeoutSeconds <= 0 disables the limit.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("manim binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    process.Default(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Render runs manim for req and returns its combined output. A non-zero exit
// is reported as *services.CommandError with the same output attached.
func (c *Client) Render(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.ScriptFile) == "" || strings.TrimSpace(req.Scene) == "" {
		return "", errors.New("manim render: script file and scene required")
	}
	cmd := process.Command{
		Binary:  c.binary,
		Args:    req.Args(),
		Dir:     req.WorkDir,
		Timeout: c.timeout,
	}
	c.logger.Debug("manim invocation", logging.String("command", cmd.String()))
	return c.exec.Run(ctx, cmd, func(line string) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			c.logger.Debug("manim output", logging.String("line", trimmed))
		}
	})
}
