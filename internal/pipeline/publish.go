package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"scenecast/internal/fileutil"
	"scenecast/internal/logging"
	"scenecast/internal/services"
)

// publish copies the run's artifact to the shared output location. Runs
// that finish together serialize on a lock file beside the artifact, and
// the copy lands via rename so readers never observe a partial file.
func (p *Pipeline) publish(ctx context.Context, state RunState) (RunState, error) {
	if err := os.MkdirAll(p.opts.OutputDir, 0o755); err != nil {
		return state, services.Wrap(services.ErrConfiguration, StagePublish, "create output directory", p.opts.OutputDir, err)
	}
	dest := filepath.Join(p.opts.OutputDir, p.opts.ArtifactName)
	lock := flock.New(dest + ".lock")
	locked, err := lock.TryLockContext(ctx, p.opts.LockRetry)
	if err != nil {
		if ctx.Err() != nil {
			return state, ctx.Err()
		}
		return state, services.Wrap(services.ErrTransient, StagePublish, "lock artifact", dest, err)
	}
	if !locked {
		return state, services.Wrap(services.ErrTransient, StagePublish, "lock artifact", dest, nil)
	}
	defer func() { _ = lock.Unlock() }()

	if err := fileutil.CopyFileAtomic(state.Artifact.Path, dest); err != nil {
		return state, services.Wrap(services.ErrMux, StagePublish, "copy artifact", dest, err)
	}
	state.PublishedPath = dest

	logger := logging.WithContext(ctx, p.logger)
	logger.Info("artifact published",
		logging.String("artifact_path", dest),
		logging.String("run_artifact_path", state.Artifact.Path),
	)

	if p.deps.Archiver != nil {
		url, err := p.deps.Archiver.Upload(ctx, state.RunID, state.Artifact.Path)
		if err != nil {
			logging.WarnWithContext(logger, "artifact archive failed", "archive_failed",
				logging.Alert("archive_unavailable"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check archive bucket and credentials"),
				logging.String(logging.FieldImpact, "artifact is available locally only"),
			)
			return state, nil
		}
		state.ArchiveURL = url
		logger.Info("artifact archived", logging.String("archive_url", url))
	}
	return state, nil
}
