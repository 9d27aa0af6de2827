package openaichat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"scenecast/internal/services/llm"
)

const defaultTimeout = 120 * time.Second

// Config captures the connection settings for an OpenAI-compatible endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	MaxRetries     int
}

// Client implements llm.Generator on top of the official OpenAI SDK. It also
// serves Gemini through Google's OpenAI-compatible endpoint.
type Client struct {
	client openai.Client
	model  string
}

// New constructs a client. Extra request options are appended after the ones
// derived from cfg, so callers (and tests) can override them.
func New(cfg Config, extra ...option.RequestOption) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithRequestTimeout(timeout),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	opts = append(opts, extra...)
	return &Client{
		client: openai.NewClient(opts...),
		model:  strings.TrimSpace(cfg.Model),
	}
}

var _ llm.Generator = (*Client)(nil)

// GenerateText sends prompt with the hint rendered as a system message.
func (c *Client) GenerateText(ctx context.Context, prompt string, hint llm.ResponseHint) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("openai generate: prompt required")
	}
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(hint.SystemPrompt()),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(c.model),
	})
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	return firstContent(completion, "openai generate")
}

type healthResponse struct {
	OK bool `json:"ok" jsonschema_description:"Always true"`
}

var healthSchema = func() any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(healthResponse{})
}()

// HealthCheck asks for a schema-constrained {"ok":true} reply.
func (c *Client) HealthCheck(ctx context.Context) error {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(`Respond with {"ok":true}`),
		},
		Model: openai.ChatModel(c.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "health_response",
					Description: openai.String("Health check acknowledgement"),
					Schema:      healthSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("openai health: %w", err)
	}
	content, err := firstContent(completion, "openai health")
	if err != nil {
		return err
	}
	var parsed healthResponse
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return fmt.Errorf("openai health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("openai health: unexpected response")
	}
	return nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

func firstContent(completion *openai.ChatCompletion, op string) (string, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices", op)
	}
	for _, choice := range completion.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("%s: empty content (finish_reason=%q)", op, completion.Choices[0].FinishReason)
}
