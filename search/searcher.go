package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

const verbatimBoost = 0.3

// Searcher retrieves chunks relevant to a query text.
type Searcher struct {
	embedder plugin.Embedder
	vectors  plugin.VectorStore
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a searcher over the given embedder and vector
// store. The embedder must be the one the ingestion pipeline used, or
// query and chunk vectors live in different spaces.
func NewSearcher(embedder plugin.Embedder, vectors plugin.VectorStore, opts ...Option) (*Searcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}

	s := &Searcher{
		embedder: embedder,
		vectors:  vectors,
		logger:   slog.Default().With("component", "search"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Find returns up to maxHits chunks relevant to the query, ranked by
// score: vector similarity, boosted when the chunk contains every
// meaningful query word verbatim.
func (s *Searcher) Find(ctx context.Context, query string, maxHits int) ([]core.ChunkMatch, error) {
	return s.FindInDocument(ctx, query, maxHits, "")
}

// FindInDocument is Find restricted to a single document. An empty
// docId searches everything.
func (s *Searcher) FindInDocument(ctx context.Context, query string, maxHits int, docId core.ID) ([]core.ChunkMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits < 1 {
		return nil, ErrInvalidMaxHits
	}

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var filter plugin.Query
	if docId != "" {
		filter = plugin.Query{"doc_id": string(docId)}
	}

	matches, err := s.vectors.Search(ctx, embedding, maxHits, filter)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, fmt.Errorf("searching vector store: %w", err)
	}

	// Re-rank with the verbatim boost.
	boosted := 0
	for i := range matches {
		if containsAllQueryWords(matches[i].Text, query) {
			matches[i].Score += verbatimBoost
			boosted++
		}
	}
	slices.SortStableFunc(matches, func(a, b core.ChunkMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	s.logger.Debug("search complete", "query", query, "hits", len(matches), "boosted", boosted)
	return matches, nil
}
