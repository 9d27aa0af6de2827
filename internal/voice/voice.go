package voice

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"scenecast/internal/logging"
	"scenecast/internal/media/ffmpeg"
	"scenecast/internal/narration"
	"scenecast/internal/scene"
	"scenecast/internal/services"
)

// File names produced inside the run directory.
const (
	NormalFileName = "voiceover_normal.mp3"
	FileName       = "voiceover.mp3"
)

// Defaults applied when Options leave a field zero.
const (
	DefaultLanguage         = "en"
	DefaultTempo            = 1.25
	DefaultToleranceSeconds = 2.0
)

// Track is the tempo-adjusted narration audio and its measured duration.
type Track struct {
	Path            string
	DurationSeconds float64
}

// Synthesizer turns text into speech audio at outPath.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language, outPath string) error
}

// Transcoder runs one ffmpeg invocation.
type Transcoder interface {
	Run(ctx context.Context, args []string) (string, error)
}

// DurationProber measures media length in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Options tune synthesis and reconciliation. Zero values select the defaults.
type Options struct {
	Language         string
	Tempo            float64
	ToleranceSeconds float64
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Language) == "" {
		o.Language = DefaultLanguage
	}
	if o.Tempo <= 0 {
		o.Tempo = DefaultTempo
	}
	if o.ToleranceSeconds <= 0 {
		o.ToleranceSeconds = DefaultToleranceSeconds
	}
	return o
}

// Adapter converts narration into a timed voice track.
type Adapter struct {
	synth  Synthesizer
	ffmpeg Transcoder
	probe  DurationProber
	opts   Options
	logger *slog.Logger
}

// NewAdapter wires the synthesizer, ffmpeg and prober collaborators.
func NewAdapter(synth Synthesizer, transcoder Transcoder, probe DurationProber, opts Options, logger *slog.Logger) *Adapter {
	return &Adapter{
		synth:  synth,
		ffmpeg: transcoder,
		probe:  probe,
		opts:   opts.withDefaults(),
		logger: logging.NewComponentLogger(logger, "voice"),
	}
}

// Synthesize speaks the cleaned narration into dir, speeds it up by the
// configured tempo and measures the result. The returned timeline carries the
// measured total when it strays from the estimate by more than the tolerance.
func (a *Adapter) Synthesize(ctx context.Context, script narration.Script, timeline scene.Timeline, dir string) (Track, scene.Timeline, error) {
	logger := logging.WithContext(ctx, a.logger)
	text := script.Spoken()
	if text == "" {
		return Track{}, timeline, services.Wrap(services.ErrEmptyNarration, "voice", "clean narration", "no speakable text after removing annotations", nil)
	}

	normalPath := filepath.Join(dir, NormalFileName)
	if err := a.synth.Synthesize(ctx, text, a.opts.Language, normalPath); err != nil {
		return Track{}, timeline, services.Wrap(services.ErrSynthesis, "voice", "synthesize", "speech synthesis failed", err)
	}

	trackPath := filepath.Join(dir, FileName)
	if _, err := a.ffmpeg.Run(ctx, ffmpeg.TempoArgs(normalPath, trackPath, a.opts.Tempo)); err != nil {
		return Track{}, timeline, services.Wrap(services.ErrTempoAdjust, "voice", "adjust tempo", "ffmpeg atempo failed", err)
	}
	if err := os.Remove(normalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "failed to remove base-tempo audio", "voice_cleanup_failed",
			logging.String("path", normalPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stray audio file remains until the run directory is released"),
		)
	}

	actual, err := a.probe.Duration(ctx, trackPath)
	if err != nil {
		return Track{}, timeline, services.Wrap(services.ErrSynthesis, "voice", "measure duration", "could not probe voice track", err)
	}
	reconciled, changed := Reconcile(timeline, actual, a.opts.ToleranceSeconds)
	reason := "within tolerance"
	if changed {
		reason = "measured duration differs from estimate beyond tolerance"
	}
	attrs := []logging.Attr{
		logging.Float64("estimated_seconds", timeline.TotalEstimatedSeconds),
		logging.Float64("actual_seconds", actual),
		logging.Float64("tolerance_seconds", a.opts.ToleranceSeconds),
	}
	attrs = append(attrs, logging.DecisionAttrs("timeline_reconcile", boolResult(changed), reason)...)
	logger.Info("voice track ready", logging.Args(attrs...)...)

	return Track{Path: trackPath, DurationSeconds: actual}, reconciled, nil
}

// Reconcile overwrites the timeline total with actual when the two differ by
// more than tolerance. Segment estimates are left as extracted.
func Reconcile(timeline scene.Timeline, actual, tolerance float64) (scene.Timeline, bool) {
	if math.Abs(actual-timeline.TotalEstimatedSeconds) > tolerance {
		return timeline.WithTotal(actual), true
	}
	return timeline, false
}

func boolResult(changed bool) string {
	if changed {
		return "replaced"
	}
	return "kept"
}
