package ffprobe

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"scenecast/internal/services/process"
)

type stubExecutor struct {
	output string
	err    error
	calls  []process.Command
}

func (s *stubExecutor) Run(_ context.Context, cmd process.Command, _ func(string)) (string, error) {
	s.calls = append(s.calls, cmd)
	return s.output, s.err
}

func TestDurationParsesOutput(t *testing.T) {
	exec := &stubExecutor{output: "43.512000\n"}
	prober := New("", WithExecutor(exec))
	seconds, err := prober.Duration(context.Background(), "/tmp/voiceover.mp3")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if seconds != 43.512 {
		t.Fatalf("unexpected duration %v", seconds)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected one call, got %d", len(exec.calls))
	}
	call := exec.calls[0]
	if call.Binary != "ffprobe" {
		t.Fatalf("unexpected binary %q", call.Binary)
	}
	joined := strings.Join(call.Args, " ")
	if !strings.Contains(joined, "-show_entries format=duration") || !strings.HasSuffix(joined, "/tmp/voiceover.mp3") {
		t.Fatalf("unexpected args %q", joined)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	for _, output := range []string{"N/A", "", "-1"} {
		prober := New("ffprobe", WithExecutor(&stubExecutor{output: output}))
		if _, err := prober.Duration(context.Background(), "x.mp4"); err == nil {
			t.Fatalf("expected error for output %q", output)
		}
	}
	prober := New("ffprobe", WithExecutor(&stubExecutor{err: errors.New("exit status 1")}))
	if _, err := prober.Duration(context.Background(), "x.mp4"); err == nil {
		t.Fatal("expected executor error to propagate")
	}
}

func TestInspectDecodesStreams(t *testing.T) {
	exec := &stubExecutor{output: `{"streams":[{"index":0,"codec_type":"video"},{"index":1,"codec_type":"audio"}],"format":{"duration":"12.5"}}`}
	result, err := New("ffprobe", WithExecutor(exec)).Inspect(context.Background(), "final_output.mp4")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.VideoStreamCount() != 1 || result.AudioStreamCount() != 1 {
		t.Fatalf("unexpected stream counts: %+v", result.Streams)
	}
	if result.DurationSeconds() != 12.5 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
}

func TestResultDurationHandlesInvalidNumbers(t *testing.T) {
	if !math.IsNaN(Result{Format: Format{Duration: "bad"}}.DurationSeconds()) {
		t.Fatal("expected NaN for malformed duration")
	}
	if (Result{}).DurationSeconds() != 0 {
		t.Fatal("expected 0 for missing duration")
	}
}
