package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scenecast/internal/fileutil"
	"scenecast/internal/logging"
	"scenecast/internal/scene"
	"scenecast/internal/services"
	"scenecast/internal/services/manim"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultScriptName  = "temp_animation.py"
	DefaultOutputStem  = "output_animation"
	mediaDirName       = "media"
)

// Video is the rendered animation copied to its stable run path.
type Video struct {
	Path            string
	DurationSeconds float64
	Attempts        int
	Quality         Quality
}

// Engine runs one render of a script.
type Engine interface {
	Render(ctx context.Context, req manim.Request) (string, error)
}

// Repairer rewrites a failing script from its error text.
type Repairer interface {
	Repair(ctx context.Context, script scene.Script, errorText string) (scene.Script, error)
}

// DurationProber measures media length in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Config bounds the render loop.
type Config struct {
	ScriptName          string
	Scene               string
	OutputStem          string
	MaxAttempts         int
	RetryDelay          time.Duration
	LowQualityThreshold float64
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.ScriptName) == "" {
		c.ScriptName = DefaultScriptName
	}
	if strings.TrimSpace(c.Scene) == "" {
		c.Scene = scene.SceneName
	}
	if strings.TrimSpace(c.OutputStem) == "" {
		c.OutputStem = DefaultOutputStem
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.LowQualityThreshold <= 0 {
		c.LowQualityThreshold = DefaultLowQualityThreshold
	}
	return c
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLocator overrides the output locator.
func WithLocator(locator *Locator) Option {
	return func(o *Orchestrator) {
		if locator != nil {
			o.locator = locator
		}
	}
}

// WithProber records the rendered video's duration on success.
func WithProber(prober DurationProber) Option {
	return func(o *Orchestrator) {
		o.prober = prober
	}
}

// WithSleeper overrides how retry delays are waited out (used by tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(o *Orchestrator) {
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logging.NewComponentLogger(logger, "render")
	}
}

// Orchestrator renders scripts and repairs them from render errors until one
// renders or the attempt budget is spent.
type Orchestrator struct {
	engine   Engine
	repairer Repairer
	cfg      Config
	locator  *Locator
	prober   DurationProber
	sleep    func(context.Context, time.Duration) error
	logger   *slog.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(engine Engine, repairer Repairer, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:   engine,
		repairer: repairer,
		cfg:      cfg.withDefaults(),
		locator:  NewLocator(),
		sleep:    sleepContext,
		logger:   logging.NewComponentLogger(nil, "render"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Render turns script into a video inside dir. Quality follows the timeline
// total. It returns the video and the script that produced it, which differs
// from the input when repairs were needed.
//
// Render and output-location failures consume an attempt and send the script
// to the repairer; a repair failure aborts with ErrGeneration. When the
// budget is spent the error is a *services.RenderExhaustedError.
func (o *Orchestrator) Render(ctx context.Context, script scene.Script, timeline scene.Timeline, dir string) (Video, scene.Script, error) {
	logger := logging.WithContext(ctx, o.logger)
	quality := QualityFor(timeline.TotalEstimatedSeconds, o.cfg.LowQualityThreshold)
	logger.Info("render quality selected", logging.Args(logging.DecisionAttrs("render_quality", string(quality),
		fmt.Sprintf("estimated %.2fs vs threshold %.2fs", timeline.TotalEstimatedSeconds, o.cfg.LowQualityThreshold))...)...)

	current := script
	var lastError string
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := o.sleep(ctx, o.cfg.RetryDelay); err != nil {
				return Video{}, current, err
			}
			repaired, err := o.repairer.Repair(ctx, current, lastError)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return Video{}, current, ctxErr
				}
				return Video{}, current, services.Wrap(services.ErrGeneration, "render", "repair script",
					fmt.Sprintf("repair before attempt %d failed", attempt), err)
			}
			current = repaired
		}

		path, err := o.attempt(ctx, current, quality, dir)
		if err == nil {
			video := Video{Path: path, Attempts: attempt, Quality: quality}
			video.DurationSeconds = o.measure(ctx, logger, path)
			logger.Info("render succeeded",
				logging.Int(logging.FieldAttempt, attempt),
				logging.Int("script_version", current.Version),
				logging.String("video_path", path),
			)
			return video, current, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Video{}, current, ctxErr
		}
		var terminal *terminalError
		if errors.As(err, &terminal) {
			return Video{}, current, terminal.err
		}

		lastError = failureText(err)
		logging.WarnWithContext(logger, "render attempt failed", "render_attempt_failed",
			logging.Int(logging.FieldAttempt, attempt),
			logging.Int("max_attempts", o.cfg.MaxAttempts),
			logging.Int("script_version", current.Version),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the script will be repaired from the captured error output"),
			logging.String(logging.FieldImpact, "render retried after repair while attempts remain"),
		)
	}
	return Video{}, current, &services.RenderExhaustedError{Attempts: o.cfg.MaxAttempts, LastError: lastError}
}

// terminalError marks failures that retrying cannot fix (local I/O).
type terminalError struct{ err error }

func (e *terminalError) Error() string { return e.err.Error() }

func (o *Orchestrator) attempt(ctx context.Context, script scene.Script, quality Quality, dir string) (string, error) {
	scriptPath := filepath.Join(dir, o.cfg.ScriptName)
	if err := os.WriteFile(scriptPath, []byte(script.Source), 0o644); err != nil {
		return "", &terminalError{services.Wrap(services.ErrExternalTool, "render", "write script", scriptPath, err)}
	}
	mediaDir := filepath.Join(dir, mediaDirName)
	output, err := o.engine.Render(ctx, manim.Request{
		WorkDir:    dir,
		ScriptFile: o.cfg.ScriptName,
		Scene:      o.cfg.Scene,
		OutputStem: o.cfg.OutputStem,
		MediaDir:   mediaDir,
		LowQuality: quality.Low(),
	})
	if err != nil {
		return "", err
	}

	videosDir := filepath.Join(mediaDir, "videos", strings.TrimSuffix(o.cfg.ScriptName, filepath.Ext(o.cfg.ScriptName)))
	located, strategy, err := o.locator.Locate(videosDir, o.cfg.OutputStem, quality)
	if err != nil {
		return "", &outputMissingError{err: err, output: output}
	}
	stable := filepath.Join(dir, o.cfg.OutputStem+".mp4")
	if err := fileutil.CopyFile(located, stable); err != nil {
		return "", &terminalError{services.Wrap(services.ErrExternalTool, "render", "copy output", stable, err)}
	}
	logging.WithContext(ctx, o.logger).Debug("render output located",
		logging.String("strategy", strategy),
		logging.String("source", located),
	)
	return stable, nil
}

// outputMissingError keeps the renderer's log next to the locate failure so
// the repair prompt sees both.
type outputMissingError struct {
	err    error
	output string
}

func (e *outputMissingError) Error() string { return e.err.Error() }

func (e *outputMissingError) Unwrap() error { return e.err }

func (o *Orchestrator) measure(ctx context.Context, logger *slog.Logger, path string) float64 {
	if o.prober == nil {
		return 0
	}
	seconds, err := o.prober.Duration(ctx, path)
	if err != nil {
		logging.WarnWithContext(logger, "could not measure rendered video", "render_probe_failed",
			logging.String("video_path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "synchronization probes the video again"),
		)
		return 0
	}
	return seconds
}

// failureText is the diagnostic handed to the repairer.
func failureText(err error) string {
	if output, ok := services.CommandOutput(err); ok && strings.TrimSpace(output) != "" {
		return output
	}
	var missing *outputMissingError
	if errors.As(err, &missing) && strings.TrimSpace(missing.output) != "" {
		return missing.err.Error() + "\n" + missing.output
	}
	return err.Error()
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
