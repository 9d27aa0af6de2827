package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"scenecast/internal/logging"
	"scenecast/internal/services/process"
)

// Runner invokes ffmpeg with pre-built argument lists.
type Runner struct {
	binary  string
	exec    process.Executor
	timeout time.Duration
	logger  *slog.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithExecutor overrides the process executor (used by tests).
func WithExecutor(exec process.Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithTimeout bounds each ffmpeg invocation. Zero means no limit.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		r.timeout = timeout
	}
}

// WithLogger attaches a logger for command-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a Runner. An empty binary defaults to "ffmpeg".
func New(binary string, opts ...Option) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	r := &Runner{binary: binary, exec: process.Default(), logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Binary reports the configured ffmpeg executable.
func (r *Runner) Binary() string {
	return r.binary
}

// Run executes ffmpeg with args and returns the captured output. Failures are
// *services.CommandError values carrying the same output.
func (r *Runner) Run(ctx context.Context, args []string) (string, error) {
	cmd := process.Command{Binary: r.binary, Args: args, Timeout: r.timeout}
	r.logger.Debug("ffmpeg invocation", logging.String("command", cmd.String()))
	started := time.Now()
	output, err := r.exec.Run(ctx, cmd, nil)
	if err != nil {
		return output, err
	}
	r.logger.Debug("ffmpeg finished", logging.Duration("elapsed", time.Since(started)))
	return output, nil
}

// TempoArgs re-times an audio file with the atempo filter.
func TempoArgs(input, output string, tempo float64) []string {
	return []string{
		"-y",
		"-i", input,
		"-filter:a", "atempo=" + FormatSeconds(tempo),
		output,
	}
}

// TrimAudioArgs muxes video with audio cut to videoSeconds.
func TrimAudioArgs(video, audio, output string, videoSeconds float64) []string {
	filter := fmt.Sprintf("[0:v]setpts=PTS-STARTPTS[v];[1:a]atrim=0:%s,asetpts=PTS-STARTPTS[a]", FormatSeconds(videoSeconds))
	return []string{
		"-y",
		"-i", video,
		"-i", audio,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "[a]",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-shortest",
		output,
	}
}

// SpeedVideoArgs muxes video re-timed by factor (audio/video) with the
// untouched audio, so the new video length equals the audio length.
func SpeedVideoArgs(video, audio, output string, factor float64) []string {
	filter := fmt.Sprintf("[0:v]setpts=%s*PTS[v]", FormatSeconds(factor))
	return []string{
		"-y",
		"-i", video,
		"-i", audio,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "1:a",
		"-c:v", "libx264",
		"-c:a", "aac",
		output,
	}
}

// StreamCopyArgs muxes without re-encoding the video stream.
func StreamCopyArgs(video, audio, output string) []string {
	return []string{
		"-y",
		"-i", video,
		"-i", audio,
		"-c:v", "copy",
		"-c:a", "aac",
		"-map", "0:v:0",
		"-map", "1:a:0",
		output,
	}
}

// FormatSeconds renders a float in the shortest exact decimal form.
func FormatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
