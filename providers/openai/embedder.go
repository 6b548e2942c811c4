package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/docit/plugin"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements plugin.Embedder against an OpenAI-compatible
// embedding API.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

var _ plugin.Embedder = (*Embedder)(nil)

// NewEmbedder creates an embedder for the configured endpoint.
func NewEmbedder(config *Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithEmbeddingModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: creating embedding client: %w", plugin.ErrProvider, err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("%w: creating embedder: %w", plugin.ErrProvider, err)
	}

	return &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in
// a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("%w: embedding %d texts: %w", plugin.ErrProvider, len(texts), err)
	}
	return vectors, nil
}
