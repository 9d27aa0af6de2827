package narration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"scenecast/internal/scene"
	"scenecast/internal/services"
	"scenecast/internal/services/llm"
)

func TestClean(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"suffixed ranges", "[0.0s-2.5s]: Hello\n[2.5s-5.0s]: world", "Hello world"},
		{"bare ranges", "[0-2]: one [2-4.5]: two", "one two"},
		{"comments", "[0.0s-1.0s]: Start # intro beat\n# pause here\nEnd", "Start End"},
		{"whitespace", "  many \t spaces\n\nhere ", "many spaces here"},
		{"only annotations", "[0.0s-1.0s]:   # nothing", ""},
		{"unrelated brackets", "see [figure 1]: left", "see [figure 1]: left"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clean(tc.in); got != tc.want {
				t.Fatalf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNarrateIncludesTimeline(t *testing.T) {
	timeline := scene.Timeline{
		Segments: []scene.Segment{
			{Ordinal: 0, RawContent: "Write(title", EstimatedSeconds: 2.5},
			{Ordinal: 1, RawContent: "Create(triangle", EstimatedSeconds: 3.5},
		},
		TotalEstimatedSeconds: 6,
	}
	var gotPrompt string
	model := llm.GeneratorFunc(func(_ context.Context, prompt string, hint llm.ResponseHint) (string, error) {
		gotPrompt = prompt
		if hint.MIMEType != llm.MIMEText {
			t.Errorf("unexpected hint %+v", hint)
		}
		return "```\n[0.0s-2.5s]: A title appears.\n[2.5s-6.0s]: A triangle.\n```", nil
	})
	script, err := NewNarrator(model, nil).Narrate(context.Background(), "Explain triangles", timeline)
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	for _, want := range []string{"Explain triangles", "Write(title", "duration 2.50s", "Create(triangle", "Total duration: 6.00 seconds"} {
		if !strings.Contains(gotPrompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, gotPrompt)
		}
	}
	if script.Spoken() != "A title appears. A triangle." {
		t.Fatalf("unexpected spoken text %q", script.Spoken())
	}
}

func TestNarrateFailuresAreNarrationErrors(t *testing.T) {
	failing := llm.GeneratorFunc(func(context.Context, string, llm.ResponseHint) (string, error) {
		return "", errors.New("503")
	})
	if _, err := NewNarrator(failing, nil).Narrate(context.Background(), "x", scene.Timeline{}); !errors.Is(err, services.ErrNarration) {
		t.Fatalf("expected ErrNarration, got %v", err)
	}
	empty := llm.GeneratorFunc(func(context.Context, string, llm.ResponseHint) (string, error) {
		return "  ", nil
	})
	if _, err := NewNarrator(empty, nil).Narrate(context.Background(), "x", scene.Timeline{}); !errors.Is(err, services.ErrNarration) {
		t.Fatalf("expected ErrNarration, got %v", err)
	}
}
