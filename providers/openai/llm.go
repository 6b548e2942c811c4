package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/docit/plugin"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LLM implements plugin.LLMProvider against an OpenAI-compatible chat
// API.
type LLM struct {
	client llms.Model
	logger *slog.Logger
}

var _ plugin.LLMProvider = (*LLM)(nil)

// NewLLM creates a completion provider for the configured endpoint.
func NewLLM(config *Config) (*LLM, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: creating chat client: %w", plugin.ErrProvider, err)
	}

	return &LLM{
		client: client,
		logger: slog.Default().With("component", "openai-llm"),
	}, nil
}

// Generate produces a completion for a single prompt.
func (l *LLM) Generate(ctx context.Context, prompt string) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	response, err := l.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		l.logger.Error("failed to generate content", "err", err)
		return "", fmt.Errorf("%w: generating completion: %w", plugin.ErrProvider, err)
	}
	if len(response.Choices) < 1 {
		l.logger.Debug("no choices returned from model")
		return "", nil
	}
	return response.Choices[0].Content, nil
}

// GenerateBatch produces one completion per prompt, in input order.
func (l *LLM) GenerateBatch(ctx context.Context, prompts []string) ([]string, error) {
	return plugin.GenerateEach(ctx, l, prompts)
}

// GenerateJSON produces a completion in JSON mode at temperature zero,
// for structured extraction prompts.
func (l *LLM) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}

	response, err := l.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		l.logger.Error("failed to generate content", "err", err)
		return "", fmt.Errorf("%w: generating JSON completion: %w", plugin.ErrProvider, err)
	}
	if len(response.Choices) < 1 {
		return "", nil
	}
	return response.Choices[0].Content, nil
}
