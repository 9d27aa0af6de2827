package process

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"scenecast/internal/services"
)

// Captured output is tail-truncated to maxCapturedBytes.
const (
	maxCapturedBytes = 64 * 1024
	waitDelay        = 2 * time.Second
)

// Command describes one external tool invocation.
type Command struct {
	Binary  string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Binary + " " + strings.Join(c.Args, " "))
}

// Executor runs external commands. onLine receives every stdout and stderr
// line as it is produced and may be nil. The returned string is the combined
// output (tail-truncated). A non-zero exit yields a *services.CommandError.
type Executor interface {
	Run(ctx context.Context, cmd Command, onLine func(string)) (string, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, cmd Command, onLine func(string)) (string, error)

// Run calls f.
func (f ExecutorFunc) Run(ctx context.Context, cmd Command, onLine func(string)) (string, error) {
	return f(ctx, cmd, onLine)
}

// Default returns the os/exec backed executor.
func Default() Executor {
	return commandExecutor{}
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, command Command, onLine func(string)) (string, error) {
	if command.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, command.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, command.Binary, command.Args...) //nolint:gosec
	cmd.Dir = command.Dir
	// Grandchildren may hold the output pipes open after a kill.
	cmd.WaitDelay = waitDelay

	sink := &lineSink{capture: &tailBuffer{limit: maxCapturedBytes}, onLine: onLine}
	cmd.Stdout = sink
	cmd.Stderr = sink
	runErr := cmd.Run()
	sink.Flush()

	output := sink.capture.String()
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			runErr = fmt.Errorf("%w (%v)", ctxErr, runErr)
		}
		return output, &services.CommandError{Binary: command.Binary, Args: command.Args, Output: output, Err: runErr}
	}
	return output, nil
}

// lineSink splits written bytes into lines shared by stdout and stderr.
type lineSink struct {
	mu      sync.Mutex
	partial []byte
	capture *tailBuffer
	onLine  func(string)
}

func (s *lineSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partial = append(s.partial, p...)
	for {
		idx := bytes.IndexByte(s.partial, '\n')
		if idx < 0 {
			break
		}
		s.emit(strings.TrimRight(string(s.partial[:idx]), "\r"))
		s.partial = s.partial[idx+1:]
	}
	return len(p), nil
}

// Flush emits any trailing text that lacked a newline.
func (s *lineSink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.partial) > 0 {
		s.emit(string(s.partial))
		s.partial = nil
	}
}

func (s *lineSink) emit(line string) {
	s.capture.WriteLine(line)
	if s.onLine != nil {
		s.onLine(line)
	}
}

// tailBuffer keeps the most recent bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) WriteLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, line...)
	t.buf = append(t.buf, '\n')
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append([]byte(nil), t.buf[over:]...)
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimRight(string(t.buf), "\n")
}
