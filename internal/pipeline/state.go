package pipeline

import (
	"scenecast/internal/avsync"
	"scenecast/internal/narration"
	"scenecast/internal/render"
	"scenecast/internal/scene"
	"scenecast/internal/voice"
)

// Stage names in execution order.
const (
	StageScript    = "script"
	StageTimeline  = "timeline"
	StageNarration = "narration"
	StageVoice     = "voice"
	StageRender    = "render"
	StageSync      = "sync"
	StagePublish   = "publish"
)

// StageOrder lists every stage in the order a run executes them.
var StageOrder = []string{StageScript, StageTimeline, StageNarration, StageVoice, StageRender, StageSync, StagePublish}

// RunState is the value threaded through the stages. Each stage receives a
// copy and returns it augmented with its own output; nothing is shared.
type RunState struct {
	RunID  string
	Prompt string
	Dir    string

	Script    scene.Script
	Timeline  scene.Timeline
	Narration narration.Script
	Track     voice.Track
	Video     render.Video
	Artifact  avsync.Artifact

	PublishedPath string
	ArchiveURL    string
}

// StageIndex returns the position of name in StageOrder, or -1.
func StageIndex(name string) int {
	for i, stage := range StageOrder {
		if stage == name {
			return i
		}
	}
	return -1
}
