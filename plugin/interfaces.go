package plugin

import (
	"context"

	"github.com/poiesic/docit/core"
)

// Parser turns one raw source into a normalized Document.
// Implementations must be safe for concurrent use.
type Parser interface {
	// Parse reads the source bytes and produces a document with content,
	// metadata and extracted elements populated. The document's Id and
	// Fingerprint are assigned by the caller, not the parser.
	// Returns an error wrapping ErrParsing on malformed input, an
	// unreadable source, or underlying-tool failure.
	Parse(ctx context.Context, src *core.Source) (*core.Document, error)

	// SupportedTypes lists the document types this parser accepts.
	SupportedTypes() []core.DocumentType
}

// Chunker splits a parsed document into ordered chunks.
// Implementations must be stable: the same document content under the
// same configuration yields the same chunk texts and order indexes.
type Chunker interface {
	// Chunk derives the chunk set for the document. Returned chunks
	// carry deterministic ids, the document's id, and order indexes
	// that are unique and strictly increasing in document order.
	// Returns an error wrapping ErrWorkflow on internal failure.
	Chunk(ctx context.Context, doc *core.Document) ([]*core.Chunk, error)
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error wrapping ErrProvider if the backend rejects the
	// input or is unreachable.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the
	// input texts, one per input; batching never alters an individual
	// input's result. Implementations without native batch support may
	// delegate to EmbedEach.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Analyzer derives semantic facts or metrics from a document.
type Analyzer interface {
	// Kind identifies what this analyzer produces (e.g. "entities",
	// "stats"). Used in run reports.
	Kind() string

	// Analyze inspects the document (and its chunks, which are
	// populated by the time analyzers run) and returns extracted
	// entities, relationships, or scalar metrics.
	Analyze(ctx context.Context, doc *core.Document) (*core.AnalysisResult, error)
}

// LLMProvider generates text completions.
// Implementations must be thread-safe for concurrent use.
type LLMProvider interface {
	// Generate produces a completion for a single prompt.
	// Returns an error wrapping ErrProvider on backend failure.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateBatch produces one completion per prompt, in input order.
	// Implementations without native batch support may delegate to
	// GenerateEach.
	GenerateBatch(ctx context.Context, prompts []string) ([]string, error)
}

// OCRProvider extracts text from images.
type OCRProvider interface {
	// ExtractText runs OCR over one image.
	// Returns an error wrapping ErrProvider on backend failure.
	ExtractText(ctx context.Context, image []byte) (string, error)

	// ExtractTextBatch runs OCR over several images. One image's failure
	// never aborts the batch: the failed item degrades to an empty
	// string and is logged, and the call itself succeeds.
	// Implementations without native batch support may delegate to
	// ExtractTextEach, which implements exactly that contract.
	ExtractTextBatch(ctx context.Context, images [][]byte) ([]string, error)
}

// MultimodalProvider processes inputs mixing text and images.
type MultimodalProvider interface {
	// Process handles one multimodal input and returns the model's
	// textual output.
	Process(ctx context.Context, parts []core.ContentPart) (string, error)

	// ProcessBatch handles several inputs, one output per input in
	// order. Implementations without native batch support may delegate
	// to ProcessEach.
	ProcessBatch(ctx context.Context, inputs [][]core.ContentPart) ([]string, error)
}

// KnowledgeProvider answers lookups against domain knowledge, industry
// norms, or compliance rules.
type KnowledgeProvider interface {
	// Query returns knowledge fragments relevant to the topic. The
	// context map carries optional hints (e.g. the document under
	// review) whose interpretation is provider-specific.
	Query(ctx context.Context, topic string, queryCtx map[string]any) ([]core.KnowledgeFragment, error)
}

// Reviewer assesses the quality of a document (completeness,
// consistency, clarity) against optional criteria.
type Reviewer interface {
	Review(ctx context.Context, doc *core.Document, criteria map[string]any) (*core.ReviewResult, error)
}

// ProposalGenerator produces change proposals from review findings or
// document differences. The context map carries the inputs (original
// document, review result, diff report) keyed by convention between
// caller and plugin.
type ProposalGenerator interface {
	Proposals(ctx context.Context, proposalCtx map[string]any) ([]core.ChangeProposal, error)
}
