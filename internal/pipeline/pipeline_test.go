package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"scenecast/internal/avsync"
	"scenecast/internal/bootstrap"
	"scenecast/internal/config"
	"scenecast/internal/narration"
	"scenecast/internal/pipeline"
	"scenecast/internal/runstore"
	"scenecast/internal/scene"
	"scenecast/internal/services"
	"scenecast/internal/testsupport"
	"scenecast/internal/voice"
)

type harness struct {
	cfg   *config.Config
	tools *testsupport.FakeTools
	model *testsupport.FakeModel
	store *runstore.Store
	pipe  *pipeline.Pipeline

	notifier *recordingNotifier
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
}

func (n *recordingNotifier) NotifyRunCompleted(_ context.Context, runID, _, _ string, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, runID)
	return nil
}

func (n *recordingNotifier) NotifyRunFailed(_ context.Context, _, _, stage string, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, stage)
	return errors.New("ntfy unreachable")
}

func newHarness(t *testing.T, videoSeconds, audioSeconds float64, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	h := &harness{
		cfg:   cfg,
		tools: testsupport.NewFakeTools(videoSeconds, audioSeconds),
		model: &testsupport.FakeModel{},
		store: testsupport.MustOpenStore(t, cfg),

		notifier: &recordingNotifier{},
	}
	pipe, err := bootstrap.NewPipeline(context.Background(), cfg, nil, bootstrap.Options{
		Model:    h.model,
		Executor: h.tools,
		Recorder: h.store,
		Notifier: h.notifier,
	})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	h.pipe = pipe
	return h
}

func runDirs(t *testing.T, cfg *config.Config) []string {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("read work dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestRunProducesPublishedArtifact(t *testing.T) {
	h := newHarness(t, 9, 12)

	result, err := h.pipe.Run(context.Background(), "Explain the Pythagorean theorem")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer result.Release()

	if got := result.State.Timeline.Len(); got != 4 {
		t.Fatalf("expected 4 segments, got %d", got)
	}
	if got := result.State.Timeline.TotalEstimatedSeconds; got != 12 {
		t.Fatalf("expected reconciled total 12, got %v", got)
	}
	if result.Strategy != avsync.StrategyTrimAudio {
		t.Fatalf("expected trim_audio, got %s", result.Strategy)
	}
	if result.RenderAttempts != 1 || h.tools.Count("manim") != 1 {
		t.Fatalf("expected a single render, attempts=%d calls=%d", result.RenderAttempts, h.tools.Count("manim"))
	}
	if result.ArtifactPath != h.cfg.ArtifactPath() {
		t.Fatalf("unexpected published path %q", result.ArtifactPath)
	}
	for _, path := range []string{result.ArtifactPath, result.RunArtifactPath, filepath.Join(result.State.Dir, voice.FileName)} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to exist: %v", path, err)
		}
	}
	if _, err := os.Stat(result.State.Video.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected consumed video to be removed, stat err=%v", err)
	}

	run, err := h.store.Get(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.Status != runstore.StatusSucceeded || run.Stage != "" {
		t.Fatalf("unexpected run record %+v", run)
	}
	if run.Strategy != string(avsync.StrategyTrimAudio) || run.ArtifactPath != result.ArtifactPath {
		t.Fatalf("unexpected run outcome %+v", run)
	}

	if err := result.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(result.State.Dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected run dir removed, stat err=%v", err)
	}
	if _, err := os.Stat(result.ArtifactPath); err != nil {
		t.Fatalf("published artifact should survive release: %v", err)
	}
	if err := result.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestRunKeepWorkDirSurvivesRelease(t *testing.T) {
	h := newHarness(t, 10, 10, testsupport.WithKeepWorkDir())

	result, err := h.pipe.Run(context.Background(), "Explain binary search")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Strategy != avsync.StrategyStreamCopy {
		t.Fatalf("expected stream_copy for equal durations, got %s", result.Strategy)
	}
	if err := result.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(result.RunArtifactPath); err != nil {
		t.Fatalf("expected run artifact kept: %v", err)
	}
}

func TestRunRejectsBlankPrompt(t *testing.T) {
	h := newHarness(t, 9, 9)

	_, err := h.pipe.Run(context.Background(), "   ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if h.model.PromptCount() != 0 {
		t.Fatal("model should not be called for a blank prompt")
	}
}

func TestRunRenderExhaustionCleansUp(t *testing.T) {
	h := newHarness(t, 9, 9, testsupport.WithMaxAttempts(2))
	h.tools.RenderFailures = 10

	_, err := h.pipe.Run(context.Background(), "Explain entropy")
	if !errors.Is(err, services.ErrRenderExhausted) {
		t.Fatalf("expected render exhaustion, got %v", err)
	}
	var exhausted *services.RenderExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Attempts != 2 {
		t.Fatalf("expected RenderExhaustedError with 2 attempts, got %v", err)
	}
	if h.tools.Count("manim") != 2 {
		t.Fatalf("expected 2 render calls, got %d", h.tools.Count("manim"))
	}
	if dirs := runDirs(t, h.cfg); len(dirs) != 0 {
		t.Fatalf("expected run directory removed, found %v", dirs)
	}
	if _, err := os.Stat(h.cfg.ArtifactPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("nothing should be published, stat err=%v", err)
	}

	runs, err := h.store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Status != runstore.StatusFailed || runs[0].Stage != pipeline.StageRender || runs[0].ErrorKind != "render_exhausted" {
		t.Fatalf("unexpected failed run %+v", runs[0])
	}
}

func TestRunRepairsFailingRender(t *testing.T) {
	h := newHarness(t, 9, 9)
	h.tools.RenderFailures = 1

	result, err := h.pipe.Run(context.Background(), "Explain recursion")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer result.Release()
	if len(h.notifier.completed) != 1 || h.notifier.completed[0] != result.RunID {
		t.Fatalf("expected completion notification for %s, got %v", result.RunID, h.notifier.completed)
	}
	if result.RenderAttempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", result.RenderAttempts)
	}
	if result.State.Script.Version != 2 {
		t.Fatalf("expected repaired script version 2, got %d", result.State.Script.Version)
	}
}

func TestRunSynthesisFailureStopsBeforeRender(t *testing.T) {
	h := newHarness(t, 9, 9)
	h.tools.FailBinary = "gtts-cli"

	_, err := h.pipe.Run(context.Background(), "Explain gravity")
	if !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
	if h.tools.Count("manim") != 0 {
		t.Fatal("render must not run after a synthesis failure")
	}
	if len(h.notifier.failed) != 1 || h.notifier.failed[0] != pipeline.StageVoice {
		t.Fatalf("expected one voice failure notification, got %v", h.notifier.failed)
	}
	if dirs := runDirs(t, h.cfg); len(dirs) != 0 {
		t.Fatalf("expected run directory removed, found %v", dirs)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	h := newHarness(t, 9, 9)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.pipe.Run(ctx, "Explain time")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if h.model.PromptCount() != 0 {
		t.Fatal("no stage should run after cancellation")
	}
	if len(h.notifier.failed) != 0 {
		t.Fatalf("cancelled runs should not notify, got %v", h.notifier.failed)
	}
	if dirs := runDirs(t, h.cfg); len(dirs) != 0 {
		t.Fatalf("expected run directory removed, found %v", dirs)
	}
}

func TestResumeFromVoiceSkipsModel(t *testing.T) {
	h := newHarness(t, 9, 9)

	script := scene.Script{Source: scene.Normalize(testsupport.SceneScript), Version: 1}
	timeline, err := scene.Extract(script)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	state := pipeline.RunState{
		Prompt:    "Explain triangles",
		Script:    script,
		Timeline:  timeline,
		Narration: narration.Script{Text: narration.Clean(testsupport.Narration)},
	}
	result, err := h.pipe.Resume(context.Background(), state, pipeline.StageVoice)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	defer result.Release()
	if h.model.PromptCount() != 0 {
		t.Fatalf("expected no model calls, got %d", h.model.PromptCount())
	}
	if h.tools.Count("gtts-cli") != 1 || h.tools.Count("manim") != 1 {
		t.Fatalf("unexpected tool calls gtts=%d manim=%d", h.tools.Count("gtts-cli"), h.tools.Count("manim"))
	}
	if result.RunID == "" {
		t.Fatal("expected a generated run id")
	}
}

func TestResumeRejectsUnknownStage(t *testing.T) {
	h := newHarness(t, 9, 9)
	if _, err := h.pipe.Resume(context.Background(), pipeline.RunState{}, "mastering"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPublishWaitsForArtifactLock(t *testing.T) {
	h := newHarness(t, 9, 9)
	if err := os.MkdirAll(h.cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatalf("mkdir output: %v", err)
	}
	artifact := filepath.Join(t.TempDir(), "final_output.mp4")
	if err := os.WriteFile(artifact, []byte("muxed"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	state := pipeline.RunState{Prompt: "Explain locks", Artifact: avsync.Artifact{Path: artifact}}

	holder := flock.New(h.cfg.ArtifactPath() + ".lock")
	if err := holder.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := h.pipe.Resume(ctx, state, pipeline.StagePublish); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected publish to wait on the lock, got %v", err)
	}
	if _, err := os.Stat(h.cfg.ArtifactPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("artifact must not be published while locked, stat err=%v", err)
	}

	if err := holder.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	result, err := h.pipe.Resume(context.Background(), state, pipeline.StagePublish)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	defer result.Release()
	data, err := os.ReadFile(h.cfg.ArtifactPath())
	if err != nil || string(data) != "muxed" {
		t.Fatalf("unexpected published content %q err=%v", data, err)
	}
}
