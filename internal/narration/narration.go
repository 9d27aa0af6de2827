package narration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"scenecast/internal/logging"
	"scenecast/internal/scene"
	"scenecast/internal/services"
	"scenecast/internal/services/llm"
)

// Script is narration text carrying [start-end]: range annotations.
type Script struct {
	Text string
}

var (
	rangePattern   = regexp.MustCompile(`\[\d+(\.\d+)?s?-\d+(\.\d+)?s?\]:`)
	commentPattern = regexp.MustCompile(`#.*`)
	narrationHint  = llm.ResponseHint{MIMEType: llm.MIMEText, Description: "Voiceover script synchronized with animation"}
)

// Clean strips range annotations and # comments and collapses whitespace,
// leaving only the words to be spoken.
func Clean(text string) string {
	text = rangePattern.ReplaceAllString(text, "")
	text = commentPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// Spoken returns the cleaned text of s.
func (s Script) Spoken() string {
	return Clean(s.Text)
}

// Narrator asks the model for a voiceover aligned to a timeline.
type Narrator struct {
	model  llm.Generator
	logger *slog.Logger
}

// NewNarrator constructs a Narrator backed by model.
func NewNarrator(model llm.Generator, logger *slog.Logger) *Narrator {
	return &Narrator{model: model, logger: logging.NewComponentLogger(logger, "narration")}
}

// Narrate requests narration for prompt that fills timeline. Range contiguity
// in the reply is not checked; downstream stages only use the spoken text.
func (n *Narrator) Narrate(ctx context.Context, prompt string, timeline scene.Timeline) (Script, error) {
	if n == nil || n.model == nil {
		return Script{}, services.Wrap(services.ErrNarration, "narration", "generate", "generative model unavailable", nil)
	}
	text, err := n.model.GenerateText(ctx, Prompt(prompt, timeline), narrationHint)
	if err != nil {
		return Script{}, services.Wrap(services.ErrNarration, "narration", "generate", "model call failed", err)
	}
	text = llm.StripCodeFence(text)
	if text == "" {
		return Script{}, services.Wrap(services.ErrNarration, "narration", "generate", "model call failed", errors.New("model returned empty text"))
	}
	logging.WithContext(ctx, n.logger).Info("narration generated",
		logging.Int("segments", timeline.Len()),
		logging.Float64("target_seconds", timeline.TotalEstimatedSeconds),
		logging.Int("narration_chars", len(text)),
	)
	return Script{Text: text}, nil
}

// Prompt renders the narration request. Every segment's content and duration
// plus the total are included so replies can cover [0, total].
func Prompt(topic string, timeline scene.Timeline) string {
	var structure strings.Builder
	if timeline.Len() == 0 {
		structure.WriteString("(no animation segments detected)\n")
	}
	for _, seg := range timeline.Segments {
		fmt.Fprintf(&structure, "%d. animation: %s (duration %.2fs)\n", seg.Ordinal+1, seg.RawContent, seg.EstimatedSeconds)
	}
	return fmt.Sprintf(promptTemplate, strings.TrimSpace(topic), structure.String(), timeline.TotalEstimatedSeconds)
}

const promptTemplate = `Create a concise, pedagogical voiceover script for this animation that explains: %s

Animation structure analysis:
%s
Requirements:
1. The explanation should perfectly match the animation sequence
2. Each animation segment should have corresponding narration
3. Total duration: %.2f seconds
4. Use simple language appropriate for the topic
5. Break down the explanation into parts that sync with visual elements
6. Include appropriate pauses between concepts
7. Return ONLY the narration text with proper timing cues in comments
8. DO NOT include anything extra other than what is described in the animation code
9. Strictly follow the content given in the code for generating explanation
10. DO NOT include any back ticks before or after the response text

Format:
[0.0s-2.5s]: Introduction to the concept
[2.5s-5.0s]: Explanation of first element
...
`
