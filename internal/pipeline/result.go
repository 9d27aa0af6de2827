package pipeline

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"scenecast/internal/avsync"
)

// Result summarises a successful run. RunArtifactPath lives inside the run
// directory and stays valid until Release; ArtifactPath is the shared
// published copy and is overwritten by later runs.
type Result struct {
	RunID           string
	Prompt          string
	ArtifactPath    string
	RunArtifactPath string
	ArchiveURL      string
	Strategy        avsync.Strategy
	RenderAttempts  int
	VideoSeconds    float64
	AudioSeconds    float64
	Elapsed         time.Duration
	State           RunState

	keep    bool
	release sync.Once
	err     error
}

func newResult(state RunState, elapsed time.Duration, keep bool) *Result {
	return &Result{
		RunID:           state.RunID,
		Prompt:          state.Prompt,
		ArtifactPath:    state.PublishedPath,
		RunArtifactPath: state.Artifact.Path,
		ArchiveURL:      state.ArchiveURL,
		Strategy:        state.Artifact.Strategy,
		RenderAttempts:  state.Video.Attempts,
		VideoSeconds:    state.Artifact.VideoSeconds,
		AudioSeconds:    state.Artifact.AudioSeconds,
		Elapsed:         elapsed,
		State:           state,
		keep:            keep,
	}
}

// Release removes the run directory unless the pipeline keeps work
// directories. It is safe to call more than once.
func (r *Result) Release() error {
	if r == nil {
		return nil
	}
	r.release.Do(func() {
		if r.keep || strings.TrimSpace(r.State.Dir) == "" {
			return
		}
		if err := os.RemoveAll(r.State.Dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.err = err
		}
	})
	return r.err
}
