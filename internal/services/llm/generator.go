package llm

import (
	"context"
	"strings"
)

// Common response MIME types passed in ResponseHint.
const (
	MIMEText   = "text/plain"
	MIMEPython = "text/x-python"
	MIMEJSON   = "application/json"
)

// ResponseHint tells the model what shape the answer should take.
type ResponseHint struct {
	MIMEType    string
	Description string
}

// Generator produces free-form text from a prompt. Both the OpenRouter client
// in this package and the openaichat package satisfy it.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, hint ResponseHint) (string, error)
}

// GeneratorFunc adapts an ordinary function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, hint ResponseHint) (string, error)

// GenerateText calls f.
func (f GeneratorFunc) GenerateText(ctx context.Context, prompt string, hint ResponseHint) (string, error) {
	return f(ctx, prompt, hint)
}

// SystemPrompt renders the hint as a system instruction.
func (h ResponseHint) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a careful assistant that follows output instructions exactly.")
	switch strings.TrimSpace(h.MIMEType) {
	case MIMEJSON:
		b.WriteString(" Respond with a single JSON document and nothing else.")
	case MIMEPython:
		b.WriteString(" Respond with raw Python source code only, without Markdown fences or commentary.")
	case "", MIMEText:
		b.WriteString(" Respond with plain text only.")
	default:
		b.WriteString(" Respond using the media type ")
		b.WriteString(strings.TrimSpace(h.MIMEType))
		b.WriteString(".")
	}
	if desc := strings.TrimSpace(h.Description); desc != "" {
		b.WriteString(" Expected output: ")
		b.WriteString(desc)
	}
	return b.String()
}
