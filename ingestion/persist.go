package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

// persist writes the run's artifacts through the best-effort three-way
// write: chunk embeddings to the vector store, entities and
// relationships to the structured store, and the document itself last,
// so a stored document only ever points at artifacts that had their
// chance to persist. Store failures are independent; nothing is rolled
// back. Returns the failed stores keyed by StoreVectors,
// StoreStructured and StoreDocuments.
func (p *Pipeline) persist(ctx context.Context, doc *core.Document, docStore plugin.DocumentStore, vecStore plugin.VectorStore, structStore plugin.StructuredStore, logger *slog.Logger) map[string]error {
	failures := make(map[string]error)

	if err := p.persistVectors(ctx, doc, vecStore); err != nil {
		failures[StoreVectors] = fmt.Errorf("%w: %w", plugin.ErrStorage, err)
	}

	if err := p.persistStructured(ctx, doc, structStore, logger); err != nil {
		failures[StoreStructured] = fmt.Errorf("%w: %w", plugin.ErrStorage, err)
	}

	if err := docStore.Save(ctx, doc); err != nil {
		failures[StoreDocuments] = fmt.Errorf("%w: %w", plugin.ErrStorage, err)
	}

	if len(failures) == 0 {
		return nil
	}
	return failures
}

// persistVectors replaces the document's embeddings wholesale: the old
// chunk set is deleted first so re-ingestion never merges with stale
// chunks.
func (p *Pipeline) persistVectors(ctx context.Context, doc *core.Document, store plugin.VectorStore) error {
	if err := store.DeleteByDocId(ctx, doc.Id); err != nil {
		return fmt.Errorf("clearing prior embeddings: %w", err)
	}
	if err := store.AddEmbeddings(ctx, doc.Chunks); err != nil {
		return fmt.Errorf("adding embeddings: %w", err)
	}
	return nil
}

// persistStructured saves extracted entities and relationships into
// their collections. A store without batch support for a collection
// degrades with a warning rather than failing the write.
func (p *Pipeline) persistStructured(ctx context.Context, doc *core.Document, store plugin.StructuredStore, logger *slog.Logger) error {
	save := func(collection string, recs []plugin.Record) error {
		if len(recs) == 0 {
			return nil
		}
		err := store.SaveBatch(ctx, collection, recs)
		if errors.Is(err, plugin.ErrNotImplemented) {
			logger.Warn("structured store does not support collection, skipping", "collection", collection, "err", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("saving %s: %w", collection, err)
		}
		return nil
	}

	if err := save("entities", entityRecords(doc.Entities)); err != nil {
		return err
	}
	return save("relationships", relationshipRecords(doc.Relationships))
}

func entityRecords(entities []*core.Entity) []plugin.Record {
	recs := make([]plugin.Record, 0, len(entities))
	for _, e := range entities {
		recs = append(recs, plugin.Record{
			Id: e.Id,
			Fields: map[string]any{
				"doc_id":      string(e.DocId),
				"name":        e.Name,
				"type":        e.Type,
				"description": e.Description,
				"confidence":  e.Confidence,
				"source_id":   string(e.SourceId),
			},
		})
	}
	return recs
}

func relationshipRecords(rels []*core.Relationship) []plugin.Record {
	recs := make([]plugin.Record, 0, len(rels))
	for _, r := range rels {
		recs = append(recs, plugin.Record{
			Id: r.Id,
			Fields: map[string]any{
				"doc_id":         string(r.DocId),
				"from_entity_id": string(r.FromEntityId),
				"to_entity_id":   string(r.ToEntityId),
				"description":    r.Description,
				"keywords":       r.Keywords,
				"weight":         r.Weight,
				"confidence":     r.Confidence,
				"source_id":      string(r.SourceId),
			},
		})
	}
	return recs
}
