package plugin

import (
	"context"

	"github.com/poiesic/docit/core"
)

// Query is a field-equality predicate for the optional find operations:
// every key must match the stored record's field of the same name.
type Query map[string]any

// Record is one row of a structured store collection.
type Record struct {
	Id     core.ID        `json:"id"`
	Fields map[string]any `json:"fields"`
}

// DocumentStore persists whole documents by id.
// Implementations must be thread-safe and support concurrent access.
type DocumentStore interface {
	// Save upserts one document by its id and maintains the
	// InsertedAt/UpdatedAt timestamps.
	Save(ctx context.Context, doc *core.Document) error

	// SaveBatch upserts several documents. The default contract is a
	// per-item loop; a failure reports the indices that failed via
	// BatchError while the remaining items are still attempted.
	SaveBatch(ctx context.Context, docs []*core.Document) error

	// Get retrieves a document by id.
	// Returns an error wrapping ErrRecordNotFound if it does not exist.
	Get(ctx context.Context, id core.ID) (*core.Document, error)

	// GetBatch retrieves several documents by id. Missing ids are
	// skipped, not an error.
	GetBatch(ctx context.Context, ids []core.ID) ([]*core.Document, error)

	// Delete removes a document by id.
	// Returns an error wrapping ErrRecordNotFound if it does not exist.
	Delete(ctx context.Context, id core.ID) error

	// DeleteBatch removes several documents; missing ids are skipped.
	DeleteBatch(ctx context.Context, ids []core.ID) error

	// Find returns the documents matching the query predicate. Find is
	// optional: stores without query support fail with an error
	// wrapping ErrNotImplemented that names the plugin (see
	// NotImplemented).
	Find(ctx context.Context, q Query) ([]*core.Document, error)

	// Close releases resources held by the store.
	Close() error
}

// VectorStore persists chunk embeddings and answers similarity queries.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// AddEmbeddings upserts the given chunks' embeddings keyed by chunk
	// id. Chunks without an embedding are skipped.
	AddEmbeddings(ctx context.Context, chunks []*core.Chunk) error

	// Search returns up to limit chunks most similar to the vector,
	// highest score first. A non-nil filter restricts candidates by
	// metadata equality (e.g. {"doc_id": id}).
	Search(ctx context.Context, vector []float32, limit int, filter Query) ([]core.ChunkMatch, error)

	// Delete removes embeddings by chunk id; missing ids are skipped.
	Delete(ctx context.Context, ids []core.ID) error

	// DeleteByDocId removes every embedding belonging to a document.
	// This is what makes re-ingestion replace a chunk set instead of
	// merging into it.
	DeleteByDocId(ctx context.Context, docId core.ID) error

	// Close releases resources held by the store.
	Close() error
}

// StructuredStore persists analysis records (entities, relationships,
// review findings) grouped into named collections.
// Implementations must be thread-safe and support concurrent access.
type StructuredStore interface {
	// Save upserts one record into a collection.
	Save(ctx context.Context, collection string, rec Record) error

	// SaveBatch upserts several records into a collection. The default
	// contract is a per-item loop with failed indices reported via
	// BatchError.
	SaveBatch(ctx context.Context, collection string, recs []Record) error

	// Get retrieves one record by id.
	// Returns an error wrapping ErrRecordNotFound if it does not exist.
	Get(ctx context.Context, collection string, id core.ID) (Record, error)

	// Delete removes one record by id.
	// Returns an error wrapping ErrRecordNotFound if it does not exist.
	Delete(ctx context.Context, collection string, id core.ID) error

	// DeleteBatch removes several records; missing ids are skipped.
	DeleteBatch(ctx context.Context, collection string, ids []core.ID) error

	// Find returns the records of a collection matching the query
	// predicate. Optional; see DocumentStore.Find.
	Find(ctx context.Context, collection string, q Query) ([]Record, error)

	// Close releases resources held by the store.
	Close() error
}
