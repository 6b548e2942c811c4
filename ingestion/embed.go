package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

// embedGates bounds in-flight embed batches per embedder plugin so a
// backend's rate limits are respected across every concurrent run.
// This is a property of the embedder, not of any one run: all runs
// using the same embedder share one gate.
type embedGates struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	size  int
}

func newEmbedGates(size int) *embedGates {
	if size < 1 {
		size = 1
	}
	return &embedGates{
		slots: make(map[string]chan struct{}),
		size:  size,
	}
}

func (g *embedGates) acquire(ctx context.Context, embedder string) error {
	g.mu.Lock()
	slot, ok := g.slots[embedder]
	if !ok {
		slot = make(chan struct{}, g.size)
		g.slots[embedder] = slot
	}
	g.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case slot <- struct{}{}:
		return nil
	}
}

func (g *embedGates) release(embedder string) {
	g.mu.Lock()
	slot := g.slots[embedder]
	g.mu.Unlock()

	if slot != nil {
		<-slot
	}
}

// resume inherits embeddings from the previously persisted revision of
// the document. Only chunks whose text matches the prior chunk at the
// same order index inherit, and only when the prior revision came from
// the same source bytes. Returns the number of chunks resumed.
func resume(ctx context.Context, store plugin.DocumentStore, doc *core.Document, logger *slog.Logger) int {
	prior, err := store.Get(ctx, doc.Id)
	if err != nil {
		if !errors.Is(err, plugin.ErrRecordNotFound) {
			logger.Warn("could not load prior revision, embedding everything", "err", err)
		}
		return 0
	}
	if prior.Fingerprint != doc.Fingerprint {
		return 0
	}

	byIndex := make(map[int]*core.Chunk, len(prior.Chunks))
	for _, chunk := range prior.Chunks {
		byIndex[chunk.OrderIndex] = chunk
	}

	resumed := 0
	for _, chunk := range doc.Chunks {
		if len(chunk.Embedding) > 0 {
			continue
		}
		old, ok := byIndex[chunk.OrderIndex]
		if !ok || old.Text != chunk.Text || len(old.Embedding) == 0 {
			continue
		}
		chunk.Embedding = old.Embedding
		resumed++
	}
	return resumed
}

// embed generates embeddings for every chunk that does not already
// carry one, in batches of the configured size. Each batch acquires a
// gate slot, runs under the per-call timeout, and is retried with
// backoff on provider failures and timeouts. Any other failure is
// permanent. Embeddings of batches that completed before a failure
// stay attached to their chunks.
func (p *Pipeline) embed(ctx context.Context, embedder plugin.Embedder, embedderName string, doc *core.Document, logger *slog.Logger) error {
	var pending []*core.Chunk
	for _, chunk := range doc.Chunks {
		if len(chunk.Embedding) == 0 {
			pending = append(pending, chunk)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	logger.Debug("embedding chunks", "pending", len(pending), "batchSize", p.batchSize)

	for start := 0; start < len(pending); start += p.batchSize {
		end := min(start+p.batchSize, len(pending))
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		if err := p.gates.acquire(ctx, embedderName); err != nil {
			return err
		}

		var vectors [][]float32
		err := RetryWithBackoff(ctx, func() error {
			callCtx, cancel := p.callContext(ctx)
			defer cancel()

			vs, err := embedder.EmbedTexts(callCtx, texts)
			if err != nil {
				// Only provider faults and timeouts are worth another
				// attempt.
				if errors.Is(err, plugin.ErrProvider) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				return Permanent(err)
			}
			if len(vs) != len(texts) {
				return Permanent(fmt.Errorf("%w: embedder returned %d vectors for %d texts", plugin.ErrProvider, len(vs), len(texts)))
			}
			vectors = vs
			return nil
		}, p.retryAttempts, p.retryBaseDelay)

		p.gates.release(embedderName)

		if err != nil {
			return fmt.Errorf("embedder %q: batch starting at chunk %d: %w", embedderName, batch[0].OrderIndex, err)
		}

		for i, chunk := range batch {
			chunk.Embedding = vectors[i]
		}
	}

	return nil
}
