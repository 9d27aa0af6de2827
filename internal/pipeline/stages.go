package pipeline

import (
	"context"
)

func (p *Pipeline) generateScript(ctx context.Context, state RunState) (RunState, error) {
	script, err := p.deps.Generator.Generate(ctx, state.Prompt)
	if err != nil {
		return state, err
	}
	state.Script = script
	return state, nil
}

func (p *Pipeline) extractTimeline(_ context.Context, state RunState) (RunState, error) {
	timeline, err := p.deps.Extract(state.Script)
	if err != nil {
		return state, err
	}
	state.Timeline = timeline
	return state, nil
}

func (p *Pipeline) narrate(ctx context.Context, state RunState) (RunState, error) {
	script, err := p.deps.Narrator.Narrate(ctx, state.Prompt, state.Timeline)
	if err != nil {
		return state, err
	}
	state.Narration = script
	return state, nil
}

// synthesizeVoice runs before rendering so the reconciled total can pick
// the render quality.
func (p *Pipeline) synthesizeVoice(ctx context.Context, state RunState) (RunState, error) {
	track, timeline, err := p.deps.Voice.Synthesize(ctx, state.Narration, state.Timeline, state.Dir)
	if err != nil {
		return state, err
	}
	state.Track = track
	state.Timeline = timeline
	return state, nil
}

func (p *Pipeline) renderVideo(ctx context.Context, state RunState) (RunState, error) {
	video, script, err := p.deps.Renderer.Render(ctx, state.Script, state.Timeline, state.Dir)
	if err != nil {
		return state, err
	}
	state.Video = video
	state.Script = script
	return state, nil
}

func (p *Pipeline) synchronize(ctx context.Context, state RunState) (RunState, error) {
	artifact, err := p.deps.Synchronizer.Synchronize(ctx, state.Video, state.Track)
	if err != nil {
		return state, err
	}
	state.Artifact = artifact
	return state, nil
}
