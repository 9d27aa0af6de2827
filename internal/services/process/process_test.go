package process_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scenecast/internal/services"
	"scenecast/internal/services/process"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestRunCapturesOutputAndLines(t *testing.T) {
	script := writeScript(t, "echo out-line\necho err-line >&2\n")
	var lines []string
	output, err := process.Default().Run(context.Background(), process.Command{Binary: script}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(output, "out-line") || !strings.Contains(output, "err-line") {
		t.Fatalf("unexpected output %q", output)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 streamed lines, got %v", lines)
	}
}

func TestRunFailureReturnsCommandError(t *testing.T) {
	script := writeScript(t, "echo 'SyntaxError: bad' >&2\nexit 3\n")
	_, err := process.Default().Run(context.Background(), process.Command{Binary: script, Args: []string{"a"}}, nil)
	var cmdErr *services.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %T %v", err, err)
	}
	if !strings.Contains(cmdErr.Output, "SyntaxError") || cmdErr.Args[0] != "a" {
		t.Fatalf("unexpected command error %+v", cmdErr)
	}
}

func TestRunHonoursDirAndTimeout(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, "pwd\n")
	output, err := process.Default().Run(context.Background(), process.Command{Binary: script, Dir: dir}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	resolved, _ := filepath.EvalSymlinks(dir)
	if !strings.Contains(output, resolved) && !strings.Contains(output, dir) {
		t.Fatalf("expected working dir %q in %q", dir, output)
	}

	slow := writeScript(t, "exec sleep 5\n")
	start := time.Now()
	_, err = process.Default().Run(context.Background(), process.Command{Binary: slow, Timeout: 100 * time.Millisecond}, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Fatal("timeout was not enforced")
	}
}

func TestMissingBinary(t *testing.T) {
	_, err := process.Default().Run(context.Background(), process.Command{Binary: filepath.Join(t.TempDir(), "nope")}, nil)
	var cmdErr *services.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
}
