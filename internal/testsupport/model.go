package testsupport

import (
	"context"
	"strings"
	"sync"

	"scenecast/internal/services/llm"
)

// SceneScript is a well-formed scene with four plays and two waits
// (estimated total 3*1.5 + 1.5 + 1 + 2 = 9 seconds).
const SceneScript = `from manim import *

class ExplanationScene(Scene):
    def construct(self):
        self.camera.background_color = BLACK
        triangle = Polygon(ORIGIN, RIGHT * 3, UP * 4)
        self.play(Create(triangle))
        self.wait(1)
        label = MathTex("a^2 + b^2 = c^2")
        self.play(Write(label))
        self.wait(2)
        self.play(label.animate.shift(UP))
        self.play(FadeOut(triangle))`

// Narration is a canned narration reply.
const Narration = "[0.0s-2.5s]: Here is a right triangle.\n[2.5s-6.0s]: The squares of the legs add up.\n[6.0s-9.0s]: That is the theorem."

// FakeModel answers generation, narration and repair prompts with canned text.
type FakeModel struct {
	mu      sync.Mutex
	Prompts []string
	// Fail makes every call return the error.
	Fail error
}

// GenerateText implements llm.Generator.
func (m *FakeModel) GenerateText(_ context.Context, prompt string, hint llm.ResponseHint) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()
	if m.Fail != nil {
		return "", m.Fail
	}
	if strings.Contains(prompt, "voiceover script") {
		return Narration, nil
	}
	if hint.MIMEType == llm.MIMEJSON {
		return `{"ok":true}`, nil
	}
	return "```python\n" + SceneScript + "\n```", nil
}

// PromptCount returns the number of prompts received.
func (m *FakeModel) PromptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
