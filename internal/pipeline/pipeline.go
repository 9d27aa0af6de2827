package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"scenecast/internal/avsync"
	"scenecast/internal/logging"
	"scenecast/internal/narration"
	"scenecast/internal/render"
	"scenecast/internal/runstore"
	"scenecast/internal/scene"
	"scenecast/internal/services"
	"scenecast/internal/voice"
)

// ScriptGenerator produces the first version of a scene script.
type ScriptGenerator interface {
	Generate(ctx context.Context, prompt string) (scene.Script, error)
}

// Narrator produces narration aligned to a timeline.
type Narrator interface {
	Narrate(ctx context.Context, prompt string, timeline scene.Timeline) (narration.Script, error)
}

// VoiceAdapter turns narration into a voice track inside dir.
type VoiceAdapter interface {
	Synthesize(ctx context.Context, script narration.Script, timeline scene.Timeline, dir string) (voice.Track, scene.Timeline, error)
}

// Renderer renders (and repairs) a script inside dir.
type Renderer interface {
	Render(ctx context.Context, script scene.Script, timeline scene.Timeline, dir string) (render.Video, scene.Script, error)
}

// Synchronizer muxes video and voice into the final artifact.
type Synchronizer interface {
	Synchronize(ctx context.Context, video render.Video, track voice.Track) (avsync.Artifact, error)
}

// Archiver uploads a published artifact.
type Archiver interface {
	Upload(ctx context.Context, runID, localPath string) (string, error)
}

// Recorder persists run history. *runstore.Store satisfies it.
type Recorder interface {
	Create(ctx context.Context, id, prompt string) (*runstore.Run, error)
	UpdateStage(ctx context.Context, id, stage string) error
	Complete(ctx context.Context, id string, outcome runstore.Outcome) error
	Fail(ctx context.Context, id, stage, kind, message string) error
}

// Notifier announces finished runs. notifications.Service satisfies it.
type Notifier interface {
	NotifyRunCompleted(ctx context.Context, runID, prompt, artifactPath string, elapsed time.Duration) error
	NotifyRunFailed(ctx context.Context, runID, prompt, stage string, err error) error
}

// Deps are the stage collaborators. Archiver, Recorder and Notifier are optional.
type Deps struct {
	Generator    ScriptGenerator
	Extract      func(scene.Script) (scene.Timeline, error)
	Narrator     Narrator
	Voice        VoiceAdapter
	Renderer     Renderer
	Synchronizer Synchronizer
	Archiver     Archiver
	Recorder     Recorder
	Notifier     Notifier
	Logger       *slog.Logger
}

// Options locate run directories and the published artifact.
type Options struct {
	WorkDir      string
	OutputDir    string
	ArtifactName string
	KeepWorkDir  bool
	// ScriptName is the renderer's script file, removed on cleanup.
	ScriptName string
	// LockRetry is how often a blocked publish re-tries the artifact lock.
	LockRetry time.Duration
}

// Pipeline runs prompts through every stage strictly in sequence.
type Pipeline struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

// Stage pairs a stage name with its function.
type Stage struct {
	Name string
	Run  func(ctx context.Context, state RunState) (RunState, error)
}

// New validates deps and opts and constructs a Pipeline.
func New(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Generator == nil:
		return nil, errors.New("pipeline: script generator required")
	case deps.Narrator == nil:
		return nil, errors.New("pipeline: narrator required")
	case deps.Voice == nil:
		return nil, errors.New("pipeline: voice adapter required")
	case deps.Renderer == nil:
		return nil, errors.New("pipeline: renderer required")
	case deps.Synchronizer == nil:
		return nil, errors.New("pipeline: synchronizer required")
	case strings.TrimSpace(opts.WorkDir) == "":
		return nil, errors.New("pipeline: work directory required")
	case strings.TrimSpace(opts.OutputDir) == "":
		return nil, errors.New("pipeline: output directory required")
	}
	if deps.Extract == nil {
		deps.Extract = scene.Extract
	}
	if strings.TrimSpace(opts.ArtifactName) == "" {
		opts.ArtifactName = avsync.DefaultOutputName
	}
	if strings.TrimSpace(opts.ScriptName) == "" {
		opts.ScriptName = render.DefaultScriptName
	}
	if opts.LockRetry <= 0 {
		opts.LockRetry = 100 * time.Millisecond
	}
	return &Pipeline{deps: deps, opts: opts, logger: logging.NewComponentLogger(deps.Logger, "pipeline")}, nil
}

// Stages returns the stage list in execution order.
func (p *Pipeline) Stages() []Stage {
	return []Stage{
		{Name: StageScript, Run: p.generateScript},
		{Name: StageTimeline, Run: p.extractTimeline},
		{Name: StageNarration, Run: p.narrate},
		{Name: StageVoice, Run: p.synthesizeVoice},
		{Name: StageRender, Run: p.renderVideo},
		{Name: StageSync, Run: p.synchronize},
		{Name: StagePublish, Run: p.publish},
	}
}

// Run executes a new run for prompt. On failure the run directory is cleaned
// up before the error is returned. The caller must Release the result.
func (p *Pipeline) Run(ctx context.Context, prompt string) (*Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "validate prompt", "prompt is required", nil)
	}
	id := uuid.NewString()
	state := RunState{RunID: id, Prompt: prompt, Dir: filepath.Join(p.opts.WorkDir, id)}
	if err := os.MkdirAll(state.Dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "create run directory", state.Dir, err)
	}
	ctx = services.WithRunID(ctx, id)
	if p.deps.Recorder != nil {
		if _, err := p.deps.Recorder.Create(ctx, id, prompt); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, p.logger), "failed to record run start", "run_record_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run proceeds without history"),
			)
		}
	}
	logging.WithContext(ctx, p.logger).Info("run started",
		logging.String("prompt", prompt),
		logging.String("run_dir", state.Dir),
	)
	return p.execute(ctx, state, 0)
}

// Resume restarts an existing run state at the named stage. Earlier stage
// outputs must already be present in state.
func (p *Pipeline) Resume(ctx context.Context, state RunState, from string) (*Result, error) {
	idx := StageIndex(from)
	if idx < 0 {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "resume", fmt.Sprintf("unknown stage %q", from), nil)
	}
	if strings.TrimSpace(state.RunID) == "" {
		state.RunID = uuid.NewString()
	}
	if strings.TrimSpace(state.Dir) == "" {
		state.Dir = filepath.Join(p.opts.WorkDir, state.RunID)
	}
	if err := os.MkdirAll(state.Dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "create run directory", state.Dir, err)
	}
	ctx = services.WithRunID(ctx, state.RunID)
	logging.WithContext(ctx, p.logger).Info("run resumed", logging.String("from_stage", from))
	return p.execute(ctx, state, idx)
}

func (p *Pipeline) execute(ctx context.Context, state RunState, start int) (*Result, error) {
	started := time.Now()
	stages := p.Stages()
	for _, stage := range stages[start:] {
		stageCtx := services.WithStage(ctx, stage.Name)
		logger := logging.WithContext(stageCtx, p.logger)
		if err := ctx.Err(); err != nil {
			return nil, p.fail(stageCtx, logger, state, stage.Name, err)
		}
		logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
		if p.deps.Recorder != nil {
			if err := p.deps.Recorder.UpdateStage(stageCtx, state.RunID, stage.Name); err != nil {
				logger.Debug("stage record failed", logging.Error(err))
			}
		}
		stageStart := time.Now()
		next, err := stage.Run(stageCtx, state)
		if err != nil {
			return nil, p.fail(stageCtx, logger, state, stage.Name, err)
		}
		state = next
		logger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)
	}

	result := newResult(state, time.Since(started), p.opts.KeepWorkDir)
	if p.deps.Recorder != nil {
		if err := p.deps.Recorder.Complete(ctx, state.RunID, runstore.Outcome{
			RenderAttempts: state.Video.Attempts,
			Strategy:       string(state.Artifact.Strategy),
			VideoSeconds:   state.Artifact.VideoSeconds,
			AudioSeconds:   state.Artifact.AudioSeconds,
			ArtifactPath:   state.PublishedPath,
			ArchiveURL:     state.ArchiveURL,
		}); err != nil {
			logging.WithContext(ctx, p.logger).Debug("run completion record failed", logging.Error(err))
		}
	}
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("run completed",
		logging.String("artifact_path", result.ArtifactPath),
		logging.String("strategy", string(result.Strategy)),
		logging.Int("render_attempts", result.RenderAttempts),
		logging.Duration("elapsed", result.Elapsed),
	)
	if p.deps.Notifier != nil {
		if err := p.deps.Notifier.NotifyRunCompleted(ctx, state.RunID, state.Prompt, result.ArtifactPath, result.Elapsed); err != nil {
			logging.WarnWithContext(logger, "run notification failed", "notification_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "video was published; no completion alert sent"),
			)
		}
	}
	return result, nil
}

// fail cleans up the run's intermediates, records the failure and returns
// stageErr unchanged.
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, state RunState, stage string, stageErr error) error {
	p.cleanup(logger, state)
	details := services.Details(stageErr)
	cancelled := errors.Is(stageErr, context.Canceled) || errors.Is(stageErr, context.DeadlineExceeded)
	if cancelled {
		details.Kind = "cancelled"
	}
	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("error_kind", details.Kind),
		logging.String("error_message", details.Message),
		logging.Error(stageErr),
	)
	// The run context may already be cancelled; the record must still land.
	recordCtx := context.WithoutCancel(ctx)
	if p.deps.Recorder != nil {
		if err := p.deps.Recorder.Fail(recordCtx, state.RunID, stage, details.Kind, details.Message); err != nil {
			logger.Debug("run failure record failed", logging.Error(err))
		}
	}
	if p.deps.Notifier != nil && !cancelled {
		if err := p.deps.Notifier.NotifyRunFailed(recordCtx, state.RunID, state.Prompt, stage, stageErr); err != nil {
			logger.Debug("failure notification failed", logging.Error(err))
		}
	}
	return stageErr
}

// cleanup removes the run directory. With KeepWorkDir only the voice track
// and script are removed so renderer logs stay inspectable.
func (p *Pipeline) cleanup(logger *slog.Logger, state RunState) {
	if strings.TrimSpace(state.Dir) == "" {
		return
	}
	if !p.opts.KeepWorkDir {
		if err := os.RemoveAll(state.Dir); err != nil {
			logger.Debug("run directory cleanup failed", logging.String("run_dir", state.Dir), logging.Error(err))
		}
		return
	}
	targets := []string{filepath.Join(state.Dir, voice.FileName), filepath.Join(state.Dir, voice.NormalFileName)}
	targets = append(targets, filepath.Join(state.Dir, p.opts.ScriptName))
	for _, target := range targets {
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Debug("intermediate cleanup failed", logging.String("path", target), logging.Error(err))
		}
	}
}
