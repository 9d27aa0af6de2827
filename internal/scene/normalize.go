package scene

import (
	"strings"

	"scenecast/internal/services/llm"
)

const (
	// SceneName is the entry class every script must declare.
	SceneName = "ExplanationScene"

	// BackgroundStatement sets the black canvas every script must carry.
	BackgroundStatement = "self.camera.background_color = BLACK"

	sceneMarker     = "class " + SceneName
	constructMarker = "def construct(self):"
	sceneHeader     = "from manim import *\n\nclass " + SceneName + "(Scene):\n"
)

// Normalize repairs model output into a renderable script: it strips
// enclosing code fences, wraps bare bodies in the entry scene class and
// injects the background statement after construct. Normalize(Normalize(x))
// equals Normalize(x).
func Normalize(source string) string {
	text := stripFences(source)
	if !strings.Contains(text, sceneMarker) {
		text = sceneHeader + indent(text, "    ")
	}
	if !strings.Contains(text, BackgroundStatement) {
		text = injectBackground(text)
	}
	return strings.TrimSpace(text)
}

func stripFences(source string) string {
	text := strings.TrimSpace(source)
	for strings.HasPrefix(text, "```") {
		next := llm.StripCodeFence(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

// indent prefixes every non-blank line, leaving blank lines empty.
func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// injectBackground adds the background statement on the line after every
// construct definition, one level deeper than the definition.
func injectBackground(text string) string {
	if !strings.Contains(text, constructMarker) {
		return text
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		out = append(out, line)
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, constructMarker) {
			continue
		}
		lead := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		body := strings.TrimSpace(strings.TrimPrefix(trimmed, constructMarker))
		if body != "" {
			// Single-line definition: split the inline body onto its own line.
			out[len(out)-1] = lead + constructMarker
			out = append(out, lead+"    "+BackgroundStatement, lead+"    "+body)
			continue
		}
		out = append(out, lead+"    "+BackgroundStatement)
	}
	return strings.Join(out, "\n")
}
