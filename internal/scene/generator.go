package scene

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"scenecast/internal/logging"
	"scenecast/internal/services"
	"scenecast/internal/services/llm"
)

var (
	generationHint = llm.ResponseHint{MIMEType: llm.MIMEPython, Description: "Raw Python code for Manim animation"}
	repairHint     = llm.ResponseHint{MIMEType: llm.MIMEPython, Description: "Fixed Python code for Manim animation"}
)

// Generator asks the model for scene scripts and script repairs.
type Generator struct {
	model  llm.Generator
	logger *slog.Logger
}

// NewGenerator constructs a Generator backed by model.
func NewGenerator(model llm.Generator, logger *slog.Logger) *Generator {
	return &Generator{model: model, logger: logging.NewComponentLogger(logger, "scene")}
}

// Generate produces a normalized version-1 script for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (Script, error) {
	if strings.TrimSpace(prompt) == "" {
		return Script{}, services.Wrap(services.ErrGeneration, "script", "validate prompt", "prompt is empty", nil)
	}
	source, err := g.ask(ctx, GenerationPrompt(prompt), generationHint)
	if err != nil {
		return Script{}, services.Wrap(services.ErrGeneration, "script", "generate", "model call failed", err)
	}
	script := Script{Source: source, Version: 1}
	logging.WithContext(ctx, g.logger).Info("scene script generated",
		logging.Int("script_bytes", len(script.Source)),
	)
	return script, nil
}

// Repair sends the failing script and its error text back to the model and
// returns the normalized fix with Version incremented.
func (g *Generator) Repair(ctx context.Context, script Script, errorText string) (Script, error) {
	source, err := g.ask(ctx, RepairPrompt(script.Source, errorText), repairHint)
	if err != nil {
		return Script{}, services.Wrap(services.ErrGeneration, "render", "repair", "model call failed", err)
	}
	fixed := Script{Source: source, Version: script.Version + 1}
	logging.WithContext(ctx, g.logger).Info("scene script repaired",
		logging.Int("version", fixed.Version),
		logging.Int("script_bytes", len(fixed.Source)),
	)
	return fixed, nil
}

func (g *Generator) ask(ctx context.Context, prompt string, hint llm.ResponseHint) (string, error) {
	if g == nil || g.model == nil {
		return "", errors.New("generative model unavailable")
	}
	text, err := g.model.GenerateText(ctx, prompt, hint)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(llm.StripCodeFence(text)) == "" {
		return "", errors.New("model returned empty text")
	}
	return Normalize(text), nil
}
