package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scenecast/internal/archive"
	"scenecast/internal/avsync"
	"scenecast/internal/config"
	"scenecast/internal/logging"
	"scenecast/internal/media/ffmpeg"
	"scenecast/internal/media/ffprobe"
	"scenecast/internal/narration"
	"scenecast/internal/notifications"
	"scenecast/internal/pipeline"
	"scenecast/internal/render"
	"scenecast/internal/scene"
	"scenecast/internal/services/gtts"
	"scenecast/internal/services/llm"
	"scenecast/internal/services/manim"
	"scenecast/internal/services/openaichat"
	"scenecast/internal/services/process"
	"scenecast/internal/voice"
)

// Model is a generator that can verify its own credentials.
type Model interface {
	llm.Generator
	HealthCheck(ctx context.Context) error
	Model() string
}

// NewModel selects the model backend for the configured provider.
func NewModel(cfg *config.Config) (Model, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	settings := cfg.GetLLM()
	switch settings.Provider {
	case config.ProviderOpenRouter:
		return llm.NewClient(llm.Config{
			APIKey:         settings.APIKey,
			BaseURL:        settings.BaseURL,
			Model:          settings.Model,
			Referer:        settings.Referer,
			Title:          settings.Title,
			TimeoutSeconds: settings.TimeoutSeconds,
		}), nil
	case config.ProviderOpenAI, config.ProviderGemini:
		return openaichat.New(openaichat.Config{
			APIKey:         settings.APIKey,
			BaseURL:        settings.BaseURL,
			Model:          settings.Model,
			TimeoutSeconds: settings.TimeoutSeconds,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", settings.Provider)
	}
}

// Options override the collaborators NewPipeline would otherwise build.
type Options struct {
	// Model replaces the configured provider client.
	Model llm.Generator
	// Executor replaces the process runner for every external tool.
	Executor process.Executor
	Recorder pipeline.Recorder
	// Archiver replaces the configured S3 archiver.
	Archiver pipeline.Archiver
	// Notifier replaces the configured ntfy service.
	Notifier pipeline.Notifier
}

// NewPipeline wires a pipeline from configuration.
func NewPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*pipeline.Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	model := opts.Model
	if model == nil {
		built, err := NewModel(cfg)
		if err != nil {
			return nil, err
		}
		model = built
	}

	exec := opts.Executor
	if exec == nil {
		exec = process.Default()
	}
	renderer, err := manim.New(cfg.Renderer.Binary, cfg.Renderer.TimeoutSeconds,
		manim.WithExecutor(exec), manim.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	speech, err := gtts.New(cfg.Speech.Binary, cfg.Speech.TimeoutSeconds, gtts.WithExecutor(exec))
	if err != nil {
		return nil, fmt.Errorf("speech: %w", err)
	}
	transcoder := ffmpeg.New(cfg.FFmpeg.Binary,
		ffmpeg.WithExecutor(exec),
		ffmpeg.WithTimeout(cfg.FFmpegTimeout()),
		ffmpeg.WithLogger(logger),
	)
	prober := ffprobe.New(cfg.FFmpeg.ProbeBinary,
		ffprobe.WithExecutor(exec),
		ffprobe.WithTimeout(cfg.FFmpegTimeout()),
	)

	generator := scene.NewGenerator(model, logger)
	orchestrator := render.NewOrchestrator(renderer, generator, render.Config{
		ScriptName:          cfg.Renderer.ScriptName,
		Scene:               cfg.Renderer.Scene,
		OutputStem:          cfg.Renderer.OutputStem,
		MaxAttempts:         cfg.Renderer.MaxAttempts,
		RetryDelay:          cfg.RetryDelay(),
		LowQualityThreshold: cfg.Renderer.LowQualityThreshold,
	}, render.WithProber(prober), render.WithLogger(logger))

	adapter := voice.NewAdapter(speech, transcoder, prober, voice.Options{
		Language:         cfg.Speech.Language,
		Tempo:            cfg.Speech.Tempo,
		ToleranceSeconds: cfg.Speech.ToleranceSeconds,
	}, logger)

	syncEngine := avsync.NewEngine(prober, transcoder, avsync.Config{
		OutputName: config.FinalArtifactName,
		ScriptName: cfg.Renderer.ScriptName,
	}, logger)

	archiver := opts.Archiver
	if archiver == nil && cfg.Archive.Enabled {
		built, err := archive.New(ctx, cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		archiver = built
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	return pipeline.New(pipeline.Deps{
		Generator:    generator,
		Narrator:     narration.NewNarrator(model, logger),
		Voice:        adapter,
		Renderer:     orchestrator,
		Synchronizer: syncEngine,
		Archiver:     archiver,
		Recorder:     opts.Recorder,
		Notifier:     notifier,
		Logger:       logger,
	}, pipeline.Options{
		WorkDir:      cfg.Paths.WorkDir,
		OutputDir:    cfg.Paths.OutputDir,
		ArtifactName: config.FinalArtifactName,
		KeepWorkDir:  cfg.Paths.KeepWorkDir,
		ScriptName:   cfg.Renderer.ScriptName,
	})
}
