package gtts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scenecast/internal/services"
	"scenecast/internal/services/process"
)

func TestSynthesizeWritesTextAndInvokesCLI(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "voiceover_normal.mp3")
	var got process.Command
	var gotText string
	exec := process.ExecutorFunc(func(_ context.Context, cmd process.Command, _ func(string)) (string, error) {
		got = cmd
		data, err := os.ReadFile(cmd.Args[1])
		if err != nil {
			t.Fatalf("read text file: %v", err)
		}
		gotText = string(data)
		return "", os.WriteFile(out, []byte("ID3"), 0o644)
	})
	client, err := New("gtts-cli", 0, WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := client.Synthesize(context.Background(), "Hello there", "", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotText != "Hello there" {
		t.Fatalf("unexpected text %q", gotText)
	}
	joined := strings.Join(got.Args, " ")
	if !strings.Contains(joined, "--lang en --output "+out) {
		t.Fatalf("unexpected args %q", joined)
	}
	if _, err := os.Stat(filepath.Join(dir, TextFileName)); !os.IsNotExist(err) {
		t.Fatalf("expected scratch text file removed, stat err=%v", err)
	}
}

func TestSynthesizeFailsWithoutAudio(t *testing.T) {
	dir := t.TempDir()
	exec := process.ExecutorFunc(func(context.Context, process.Command, func(string)) (string, error) {
		return "", nil
	})
	client, _ := New("gtts-cli", 0, WithExecutor(exec))
	if err := client.Synthesize(context.Background(), "text", "en", filepath.Join(dir, "a.mp3")); err == nil {
		t.Fatal("expected error when no audio is produced")
	}
}

func TestSynthesizePropagatesCommandError(t *testing.T) {
	exec := process.ExecutorFunc(func(_ context.Context, cmd process.Command, _ func(string)) (string, error) {
		return "gTTSError: 429", &services.CommandError{Binary: cmd.Binary, Output: "gTTSError: 429", Err: errors.New("exit status 1")}
	})
	client, _ := New("gtts-cli", 0, WithExecutor(exec))
	err := client.Synthesize(context.Background(), "text", "en", filepath.Join(t.TempDir(), "a.mp3"))
	var cmdErr *services.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	client, _ := New("gtts-cli", 0)
	if err := client.Synthesize(context.Background(), "   ", "en", "/tmp/x.mp3"); err == nil {
		t.Fatal("expected error for empty text")
	}
}
