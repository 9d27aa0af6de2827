package avsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"scenecast/internal/logging"
	"scenecast/internal/media/ffmpeg"
	"scenecast/internal/media/ffprobe"
	"scenecast/internal/render"
	"scenecast/internal/services"
	"scenecast/internal/voice"
)

// DefaultOutputName is the muxed file written next to the rendered video.
const DefaultOutputName = "final_output.mp4"

// Strategy names the mux branch chosen for a duration pair.
type Strategy string

const (
	StrategyTrimAudio  Strategy = "trim_audio"
	StrategySpeedVideo Strategy = "speed_video"
	StrategyStreamCopy Strategy = "stream_copy"
)

// Artifact is the synchronized output.
type Artifact struct {
	Path         string
	Strategy     Strategy
	VideoSeconds float64
	AudioSeconds float64
}

// Prober measures and inspects media files.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Transcoder runs one ffmpeg invocation.
type Transcoder interface {
	Run(ctx context.Context, args []string) (string, error)
}

// Config names the files the engine writes and consumes.
type Config struct {
	OutputName string
	// ScriptName is the render script deleted alongside the consumed video.
	ScriptName string
}

// Engine muxes a rendered video with its voice track.
type Engine struct {
	prober     Prober
	transcoder Transcoder
	cfg        Config
	logger     *slog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(prober Prober, transcoder Transcoder, cfg Config, logger *slog.Logger) *Engine {
	if strings.TrimSpace(cfg.OutputName) == "" {
		cfg.OutputName = DefaultOutputName
	}
	if strings.TrimSpace(cfg.ScriptName) == "" {
		cfg.ScriptName = render.DefaultScriptName
	}
	return &Engine{prober: prober, transcoder: transcoder, cfg: cfg, logger: logging.NewComponentLogger(logger, "avsync")}
}

// SelectStrategy picks the mux branch. Equality is exact: any difference,
// however small, re-encodes.
func SelectStrategy(videoSeconds, audioSeconds float64) Strategy {
	switch {
	case audioSeconds > videoSeconds:
		return StrategyTrimAudio
	case audioSeconds < videoSeconds:
		return StrategySpeedVideo
	default:
		return StrategyStreamCopy
	}
}

// SpeedFactor is the setpts multiplier that makes the video last as long as
// the audio. Values below 1 accelerate playback.
func SpeedFactor(videoSeconds, audioSeconds float64) float64 {
	return audioSeconds / videoSeconds
}

// Args builds the ffmpeg arguments for strategy.
func Args(strategy Strategy, videoPath, audioPath, outputPath string, videoSeconds, audioSeconds float64) []string {
	switch strategy {
	case StrategyTrimAudio:
		return ffmpeg.TrimAudioArgs(videoPath, audioPath, outputPath, videoSeconds)
	case StrategySpeedVideo:
		return ffmpeg.SpeedVideoArgs(videoPath, audioPath, outputPath, SpeedFactor(videoSeconds, audioSeconds))
	default:
		return ffmpeg.StreamCopyArgs(videoPath, audioPath, outputPath)
	}
}

// Synchronize measures both inputs, muxes them with one ffmpeg invocation and
// verifies the result has video and audio streams. On success the consumed
// video and render script are removed; the voice track stays for the caller.
func (e *Engine) Synchronize(ctx context.Context, video render.Video, track voice.Track) (Artifact, error) {
	logger := logging.WithContext(ctx, e.logger)
	videoSeconds, err := e.prober.Duration(ctx, video.Path)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrMux, "sync", "probe video", video.Path, err)
	}
	audioSeconds, err := e.prober.Duration(ctx, track.Path)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrMux, "sync", "probe audio", track.Path, err)
	}
	if videoSeconds <= 0 {
		return Artifact{}, services.Wrap(services.ErrMux, "sync", "probe video", "video has no measurable duration", nil)
	}
	if audioSeconds <= 0 {
		return Artifact{}, services.Wrap(services.ErrMux, "sync", "probe audio", "audio has no measurable duration", nil)
	}

	strategy := SelectStrategy(videoSeconds, audioSeconds)
	logger.Info("sync strategy selected", logging.Args(append([]logging.Attr{
		logging.Float64("video_seconds", videoSeconds),
		logging.Float64("audio_seconds", audioSeconds),
	}, logging.DecisionAttrs("sync_strategy", string(strategy), strategyReason(strategy, videoSeconds, audioSeconds))...)...)...)

	dir := filepath.Dir(video.Path)
	outputPath := filepath.Join(dir, e.cfg.OutputName)
	args := Args(strategy, video.Path, track.Path, outputPath, videoSeconds, audioSeconds)
	if output, err := e.transcoder.Run(ctx, args); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Artifact{}, ctxErr
		}
		message := string(strategy) + " mux failed"
		if tail := lastLines(output, 5); tail != "" {
			message += ": " + tail
		}
		return Artifact{}, services.Wrap(services.ErrMux, "sync", "mux", message, err)
	}
	if err := e.validate(ctx, outputPath); err != nil {
		return Artifact{}, err
	}

	for _, path := range []string{video.Path, filepath.Join(dir, e.cfg.ScriptName)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logger, "failed to remove consumed intermediate", "sync_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file remains until the run directory is released"),
			)
		}
	}
	logger.Info("media synchronized",
		logging.String("artifact_path", outputPath),
		logging.String("strategy", string(strategy)),
	)
	return Artifact{Path: outputPath, Strategy: strategy, VideoSeconds: videoSeconds, AudioSeconds: audioSeconds}, nil
}

func (e *Engine) validate(ctx context.Context, path string) error {
	result, err := e.prober.Inspect(ctx, path)
	if err != nil {
		return services.Wrap(services.ErrMux, "sync", "validate output", path, err)
	}
	if result.VideoStreamCount() == 0 || result.AudioStreamCount() == 0 {
		return services.Wrap(services.ErrMux, "sync", "validate output",
			fmt.Sprintf("expected video and audio streams, found %d video and %d audio", result.VideoStreamCount(), result.AudioStreamCount()), nil)
	}
	return nil
}

func strategyReason(strategy Strategy, videoSeconds, audioSeconds float64) string {
	switch strategy {
	case StrategyTrimAudio:
		return fmt.Sprintf("audio longer than video by %.3fs", audioSeconds-videoSeconds)
	case StrategySpeedVideo:
		return fmt.Sprintf("video longer than audio, speed factor %s", ffmpeg.FormatSeconds(SpeedFactor(videoSeconds, audioSeconds)))
	default:
		return "durations equal"
	}
}

func lastLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}
