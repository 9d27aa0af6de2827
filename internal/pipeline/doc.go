// Package pipeline sequences a scenecast run: script generation, timeline
// extraction, narration, voice synthesis, render with repair, audio/video
// sync and publication.
//
// Each stage is a function from RunState to RunState. Stages execute strictly
// in order inside a per-run directory named by the run id, so concurrent runs
// never share intermediates. Only the publish stage touches shared state and
// it serializes on a lock file next to the published artifact.
//
// Stage transitions are logged with event_type stage_start, stage_complete
// and stage_failure, and recorded through the optional Recorder. A failing or
// cancelled run removes its intermediates before the error is returned.
//
// Resume restarts a run at a named stage given the outputs of the earlier
// stages, which is how the CLI retries a run from the render stage.
package pipeline
