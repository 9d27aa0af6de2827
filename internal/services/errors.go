package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient failure")
)

// Pipeline failure kinds. Every stage error carries exactly one of these
// markers so callers can classify it with errors.Is.
var (
	ErrGeneration      = errors.New("script generation failed")
	ErrStructure       = errors.New("script structure extraction failed")
	ErrNarration       = errors.New("narration generation failed")
	ErrEmptyNarration  = errors.New("narration is empty")
	ErrSynthesis       = errors.New("speech synthesis failed")
	ErrTempoAdjust     = errors.New("tempo adjustment failed")
	ErrOutputNotFound  = errors.New("rendered output not found")
	ErrRenderExhausted = errors.New("render attempts exhausted")
	ErrMux             = errors.New("media mux failed")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// CommandError reports a failed external process invocation together with the
// diagnostic output it produced.
type CommandError struct {
	Binary string
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	output := strings.TrimSpace(e.Output)
	if output == "" {
		return fmt.Sprintf("%s: %v", e.Binary, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Binary, e.Err, summarize(output, 400))
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// CommandOutput returns the captured process output when err wraps a CommandError.
func CommandOutput(err error) (string, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Output, true
	}
	return "", false
}

// RenderExhaustedError is returned once the render-repair budget is spent.
type RenderExhaustedError struct {
	Attempts  int
	LastError string
}

func (e *RenderExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %s", ErrRenderExhausted, e.Attempts, summarize(e.LastError, 400))
}

func (e *RenderExhaustedError) Is(target error) bool {
	return target == ErrRenderExhausted
}

// ErrorDetails is the user-facing summary of a pipeline error.
type ErrorDetails struct {
	Kind    string
	Message string
}

var kinds = []struct {
	marker error
	name   string
}{
	{ErrGeneration, "generation"},
	{ErrStructure, "structure"},
	{ErrNarration, "narration"},
	{ErrEmptyNarration, "empty_narration"},
	{ErrSynthesis, "synthesis"},
	{ErrTempoAdjust, "tempo_adjust"},
	{ErrOutputNotFound, "output_not_found"},
	{ErrRenderExhausted, "render_exhausted"},
	{ErrMux, "mux"},
	{ErrValidation, "validation"},
	{ErrConfiguration, "configuration"},
	{ErrExternalTool, "external_tool"},
}

// Details classifies err and returns a compact message suitable for run
// records and log lines.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: "unknown", Message: summarize(err.Error(), 600)}
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			details.Kind = k.name
			break
		}
	}
	return details
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

func summarize(value string, limit int) string {
	clean := strings.Join(strings.Fields(value), " ")
	runes := []rune(clean)
	if limit > 0 && len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
