package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/mock"
	"github.com/poiesic/docit/plugin"
	"github.com/poiesic/docit/stores/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness wires a pipeline over mock stage plugins and real in-memory
// stores, so tests can both script failures and inspect what got
// persisted.
type harness struct {
	registry *plugin.Registry
	pipeline *Pipeline

	parser   *mock.MockParser
	chunker  *mock.MockChunker
	embedder *mock.MockEmbedder

	docs    *memory.DocumentStore
	vectors *memory.VectorStore
	records *memory.StructuredStore
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		parser:   mock.NewMockParser(),
		chunker:  mock.NewMockChunker(),
		embedder: mock.NewMockEmbedder(),
		docs:     memory.NewDocumentStore(),
		vectors:  memory.NewVectorStore(),
		records:  memory.NewStructuredStore(),
	}

	settings := plugin.DefaultSettings()
	settings.DefaultParser = "mock"
	settings.DefaultChunker = "mock"
	settings.DefaultEmbedder = "mock"
	settings.EnabledAnalyzers = nil

	h.registry = plugin.NewRegistry(settings)
	manifest := plugin.Manifest{
		{Name: "mock", Group: plugin.GroupParsers, Factory: func(plugin.Config) (any, error) { return h.parser, nil }},
		{Name: "mock", Group: plugin.GroupChunkers, Factory: func(plugin.Config) (any, error) { return h.chunker, nil }},
		{Name: "mock", Group: plugin.GroupEmbedders, Factory: func(plugin.Config) (any, error) { return h.embedder, nil }},
		{Name: "memory", Group: plugin.GroupDocumentStores, Factory: func(plugin.Config) (any, error) { return h.docs, nil }},
		{Name: "memory", Group: plugin.GroupVectorStores, Factory: func(plugin.Config) (any, error) { return h.vectors, nil }},
		{Name: "memory", Group: plugin.GroupStructuredStores, Factory: func(plugin.Config) (any, error) { return h.records, nil }},
	}
	require.Equal(t, len(manifest), h.registry.Load(manifest))

	opts = append([]Option{WithRetryPolicy(3, time.Millisecond)}, opts...)
	pipeline, err := NewPipeline(h.registry, opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	h.pipeline = pipeline
	return h
}

// chunkN makes the harness chunker split the content into n chunks.
func (h *harness) chunkN(n int) {
	h.chunker.ChunkFunc = func(ctx context.Context, doc *core.Document) ([]*core.Chunk, error) {
		chunks := make([]*core.Chunk, n)
		for i := range n {
			chunks[i] = &core.Chunk{
				Id:         core.ChunkID(doc.Id, i),
				DocId:      doc.Id,
				OrderIndex: i,
				Text:       fmt.Sprintf("%s part %d", doc.Content, i),
			}
		}
		return chunks, nil
	}
}

func TestPipeline_SuccessfulRun(t *testing.T) {
	h := newHarness(t)
	h.chunkN(3)

	src := &core.Source{Name: "notes.txt", Data: []byte("three chunks of text")}
	res, err := h.pipeline.Ingest(context.Background(), src, nil)
	require.NoError(t, err)

	assert.Equal(t, StatePersisted, res.State)
	assert.NotEmpty(t, res.RunId)
	assert.Equal(t, core.DocumentID(core.Fingerprint(src.Data)), res.DocId)
	assert.False(t, res.Degraded)
	assert.Empty(t, res.StoreErrors)
	assert.Greater(t, res.Elapsed, time.Duration(0))

	stored, err := h.docs.Get(context.Background(), res.DocId)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", stored.Name)
	assert.Len(t, stored.Chunks, 3)
	for _, chunk := range stored.Chunks {
		assert.NotEmpty(t, chunk.Embedding)
	}
	assert.Equal(t, 3, h.vectors.Count())
}

func TestPipeline_IdempotentReingestion(t *testing.T) {
	h := newHarness(t)
	h.chunkN(3)
	src := &core.Source{Name: "notes.txt", Data: []byte("same bytes both times")}

	first, err := h.pipeline.Ingest(context.Background(), src, nil)
	require.NoError(t, err)
	callsAfterFirst := h.embedder.CallCount()

	second, err := h.pipeline.Ingest(context.Background(), src, nil)
	require.NoError(t, err)

	assert.Equal(t, first.DocId, second.DocId, "same bytes must map to the same document id")
	assert.Equal(t, 3, second.ResumedChunks, "unchanged chunks must inherit their embeddings")
	assert.Equal(t, callsAfterFirst, h.embedder.CallCount(), "no chunk should be re-embedded")
	assert.Equal(t, 3, h.vectors.Count(), "re-ingestion must replace, not duplicate, embeddings")
}

func TestPipeline_ChunkOrderConflictFails(t *testing.T) {
	h := newHarness(t)
	h.chunker.ChunkFunc = func(ctx context.Context, doc *core.Document) ([]*core.Chunk, error) {
		return []*core.Chunk{
			{Id: core.ChunkID(doc.Id, 0), DocId: doc.Id, OrderIndex: 0, Text: "a"},
			{Id: core.ChunkID(doc.Id, 0), DocId: doc.Id, OrderIndex: 0, Text: "b"},
		}, nil
	}

	_, err := h.pipeline.Ingest(context.Background(), &core.Source{Name: "notes.txt", Data: []byte("x")}, nil)
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateParsed, runErr.State)
	assert.ErrorIs(t, err, plugin.ErrWorkflow)
	assert.Contains(t, err.Error(), `chunker "mock"`, "the error must name the resolved plugin")
}

func TestPipeline_ChunkerErrorNamesResolvedPlugin(t *testing.T) {
	h := newHarness(t)
	h.chunker.ChunkFunc = func(ctx context.Context, doc *core.Document) ([]*core.Chunk, error) {
		return nil, errors.New("split failed")
	}

	// No per-run chunker name: the wrap still carries the configured
	// default's identity.
	_, err := h.pipeline.Ingest(context.Background(), &core.Source{Name: "notes.txt", Data: []byte("x")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `chunker "mock"`)
	assert.NotContains(t, err.Error(), `"default"`)
}

func TestPipeline_EmbedGateSharedAcrossDefaultAndExplicitName(t *testing.T) {
	gateKeys := func(p *Pipeline) []string {
		p.gates.mu.Lock()
		defer p.gates.mu.Unlock()
		keys := make([]string, 0, len(p.gates.slots))
		for key := range p.gates.slots {
			keys = append(keys, key)
		}
		return keys
	}

	t.Run("configured default", func(t *testing.T) {
		h := newHarness(t)
		h.chunkN(2)

		_, err := h.pipeline.Ingest(context.Background(), &core.Source{Name: "a.txt", Data: []byte("first")}, nil)
		require.NoError(t, err)
		_, err = h.pipeline.Ingest(context.Background(), &core.Source{Name: "b.txt", Data: []byte("second")}, &IngestOptions{Embedder: "mock"})
		require.NoError(t, err)

		assert.Equal(t, []string{"mock"}, gateKeys(h.pipeline), "default and explicit name must share one gate")
	})

	t.Run("sole registered embedder", func(t *testing.T) {
		h := newHarness(t)
		h.chunkN(2)
		h.registry.Settings().DefaultEmbedder = ""

		_, err := h.pipeline.Ingest(context.Background(), &core.Source{Name: "a.txt", Data: []byte("fallback")}, nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"mock"}, gateKeys(h.pipeline), "the fallback embedder's gate must key on its registered name")
	})
}

func TestPipeline_EmbedRetriesProviderFailures(t *testing.T) {
	h := newHarness(t)
	h.chunkN(2)

	var calls atomic.Int32
	h.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) < 3 {
			return nil, fmt.Errorf("%w: backend overloaded", plugin.ErrProvider)
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 8)
		}
		return vectors, nil
	}

	res, err := h.pipeline.Ingest(context.Background(), &core.Source{Name: "notes.txt", Data: []byte("flaky backend")}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatePersisted, res.State)
	assert.Equal(t, int32(3), calls.Load(), "two provider failures then success")
}

func TestPipeline_EmbedNonProviderErrorIsPermanent(t *testing.T) {
	h := newHarness(t)
	h.chunkN(2)

	var calls atomic.Int32
	h.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls.Add(1)
		return nil, errors.New("malformed request")
	}

	_, err := h.pipeline.Ingest(context.Background(), &core.Source{Name: "notes.txt", Data: []byte("bad request")}, nil)
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateChunked, runErr.State)
	assert.Equal(t, int32(1), calls.Load(), "non-provider errors must not be retried")
}

func TestPipeline_EmbedFailureKeepsCompletedBatches(t *testing.T) {
	h := newHarness(t, WithBatchSize(2))
	h.chunkN(5)
	src := &core.Source{Name: "notes.txt", Data: []byte("five chunks, second batch dies")}

	var calls atomic.Int32
	h.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) > 1 {
			return nil, errors.New("hard failure")
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 8)
		}
		return vectors, nil
	}

	_, err := h.pipeline.Ingest(context.Background(), src, nil)
	require.Error(t, err)

	// The first batch's embeddings were saved for resumption.
	partial, err := h.docs.Get(context.Background(), core.DocumentID(core.Fingerprint(src.Data)))
	require.NoError(t, err)
	embedded := 0
	for _, chunk := range partial.Chunks {
		if len(chunk.Embedding) > 0 {
			embedded++
		}
	}
	assert.Equal(t, 2, embedded)

	// A later run inherits the completed batch and embeds the rest.
	h.embedder.EmbedTextsFunc = nil
	res, err := h.pipeline.Ingest(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Equal(t, StatePersisted, res.State)
	assert.Equal(t, 2, res.ResumedChunks)
	assert.Equal(t, 5, h.vectors.Count())
}

func TestPipeline_AnalyzerFailureDegrades(t *testing.T) {
	h := newHarness(t)
	h.chunkN(1)

	good := &mock.MockAnalyzer{
		Name: "good",
		AnalyzeFunc: func(ctx context.Context, doc *core.Document) (*core.AnalysisResult, error) {
			return &core.AnalysisResult{
				Analyzer: "good",
				Entities: []*core.Entity{{Name: "Ada Lovelace", Type: "person", Confidence: 2.5}},
				Metrics:  map[string]float64{"count": 1},
			}, nil
		},
	}
	bad := &mock.MockAnalyzer{
		Name: "bad",
		AnalyzeFunc: func(ctx context.Context, doc *core.Document) (*core.AnalysisResult, error) {
			return nil, errors.New("model unavailable")
		},
	}
	require.NoError(t, h.registry.Register(plugin.Descriptor{
		Name: "good", Group: plugin.GroupAnalyzers,
		Factory: func(plugin.Config) (any, error) { return good, nil },
	}))
	require.NoError(t, h.registry.Register(plugin.Descriptor{
		Name: "bad", Group: plugin.GroupAnalyzers,
		Factory: func(plugin.Config) (any, error) { return bad, nil },
	}))
	h.registry.Settings().EnabledAnalyzers = []string{"good", "bad", "missing"}

	res, err := h.pipeline.Ingest(context.Background(), &core.Source{Name: "notes.txt", Data: []byte("analyze me")}, nil)
	require.NoError(t, err, "analyzer failures must not abort the run")

	assert.Equal(t, StatePersisted, res.State)
	assert.True(t, res.Degraded)
	assert.Len(t, res.AnalyzerFailures, 2)
	assert.Contains(t, res.AnalyzerFailures, "bad")
	assert.Contains(t, res.AnalyzerFailures, "missing")

	// The successful analyzer's output was merged and persisted.
	require.NotNil(t, res.Doc)
	require.Len(t, res.Doc.Entities, 1)
	entity := res.Doc.Entities[0]
	assert.Equal(t, res.DocId, entity.DocId)
	assert.Equal(t, core.EntityID(res.DocId, "person", "Ada Lovelace"), entity.Id)
	assert.Equal(t, 1.0, entity.Confidence, "confidence must be clamped to [0,1]")
	assert.Equal(t, 1.0, res.Doc.Metadata["good.count"])
	assert.Equal(t, 1, h.records.Count("entities"))
}

func TestPipeline_UnresolvableAnalyzersAlongsideFailingOnes(t *testing.T) {
	h := newHarness(t)
	h.chunkN(1)

	// The failing analyzers record their errors from pool goroutines
	// while the pipeline goroutine records the unresolvable names; both
	// must land in the failure map without tripping the race detector.
	slow := &mock.MockAnalyzer{
		Name: "slow",
		AnalyzeFunc: func(ctx context.Context, doc *core.Document) (*core.AnalysisResult, error) {
			time.Sleep(5 * time.Millisecond)
			return nil, errors.New("model unavailable")
		},
	}
	fast := &mock.MockAnalyzer{
		Name: "fast",
		AnalyzeFunc: func(ctx context.Context, doc *core.Document) (*core.AnalysisResult, error) {
			return nil, errors.New("model unavailable")
		},
	}
	require.NoError(t, h.registry.Register(plugin.Descriptor{
		Name: "slow", Group: plugin.GroupAnalyzers,
		Factory: func(plugin.Config) (any, error) { return slow, nil },
	}))
	require.NoError(t, h.registry.Register(plugin.Descriptor{
		Name: "fast", Group: plugin.GroupAnalyzers,
		Factory: func(plugin.Config) (any, error) { return fast, nil },
	}))
	h.registry.Settings().EnabledAnalyzers = []string{"slow", "fast", "ghost-1", "ghost-2", "ghost-3"}

	res, err := h.pipeline.Ingest(context.Background(), &core.Source{Name: "notes.txt", Data: []byte("racy analyzers")}, nil)
	require.NoError(t, err)

	assert.Equal(t, StatePersisted, res.State)
	assert.True(t, res.Degraded)
	require.Len(t, res.AnalyzerFailures, 5)
	for _, name := range []string{"slow", "fast", "ghost-1", "ghost-2", "ghost-3"} {
		assert.Contains(t, res.AnalyzerFailures, name)
	}
}

func TestPipeline_StoreFailuresAreIndependent(t *testing.T) {
	h := newHarness(t)
	h.chunkN(2)

	failing := &mock.MockVectorStore{
		Inner: h.vectors,
		AddEmbeddingsFunc: func(ctx context.Context, chunks []*core.Chunk) error {
			return errors.New("disk full")
		},
	}
	require.NoError(t, h.registry.Register(plugin.Descriptor{
		Name: "failing", Group: plugin.GroupVectorStores,
		Factory: func(plugin.Config) (any, error) { return failing, nil },
	}))
	h.registry.Settings().VectorStore = "failing"

	src := &core.Source{Name: "notes.txt", Data: []byte("vector store down")}
	res, err := h.pipeline.Ingest(context.Background(), src, nil)
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateAnalyzed, runErr.State)
	assert.ErrorIs(t, err, plugin.ErrStorage)

	require.Contains(t, res.StoreErrors, StoreVectors)
	assert.NotContains(t, res.StoreErrors, StoreDocuments)
	assert.Contains(t, res.StoreErrors[StoreVectors].Error(), "disk full")

	// The document store write still happened.
	_, err = h.docs.Get(context.Background(), res.DocId)
	assert.NoError(t, err)
}

func TestPipeline_ConcurrentRunFailsFast(t *testing.T) {
	h := newHarness(t)
	src := &core.Source{Name: "notes.txt", Data: []byte("contested id")}
	docId := core.DocumentID(core.Fingerprint(src.Data))

	require.NoError(t, h.pipeline.locks.acquire(context.Background(), docId, false))
	defer h.pipeline.locks.release(docId)

	res, err := h.pipeline.Ingest(context.Background(), src, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, StateFailed, res.State)
}

func TestPipeline_ParserFailure(t *testing.T) {
	h := newHarness(t)
	h.parser.ParseFunc = func(ctx context.Context, src *core.Source) (*core.Document, error) {
		return nil, errors.New("corrupt header")
	}

	res, err := h.pipeline.Ingest(context.Background(), &core.Source{Name: "broken.txt", Data: []byte{0x00}}, nil)
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateReceived, runErr.State)
	assert.ErrorIs(t, err, plugin.ErrParsing)
	assert.Equal(t, StateFailed, res.State)
	assert.Nil(t, res.Doc)
}

func TestPipeline_UnknownEmbedderFailsBeforeParsing(t *testing.T) {
	h := newHarness(t)

	_, err := h.pipeline.Ingest(context.Background(),
		&core.Source{Name: "notes.txt", Data: []byte("x")},
		&IngestOptions{Embedder: "no-such-embedder"})
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateReceived, runErr.State)
	assert.ErrorIs(t, err, plugin.ErrNotFound)
	assert.Equal(t, 0, h.parser.CallCount(), "plugins resolve before any stage runs")
}

func TestPipeline_EmptySourceRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.pipeline.Ingest(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrSourceRequired)

	_, err = h.pipeline.Ingest(context.Background(), &core.Source{Name: "empty.txt"}, nil)
	assert.ErrorIs(t, err, ErrSourceRequired)
}

func TestPipeline_AnalyzerOrderIsDeterministic(t *testing.T) {
	h := newHarness(t)
	h.chunkN(1)

	makeAnalyzer := func(name string, delay time.Duration) *mock.MockAnalyzer {
		return &mock.MockAnalyzer{
			Name: name,
			AnalyzeFunc: func(ctx context.Context, doc *core.Document) (*core.AnalysisResult, error) {
				time.Sleep(delay)
				return &core.AnalysisResult{
					Analyzer: name,
					Entities: []*core.Entity{{Name: strings.ToUpper(name), Type: "topic", Confidence: 1}},
				}, nil
			},
		}
	}
	// The slower analyzer comes first in the configured order, so its
	// entities must still be merged first.
	slow := makeAnalyzer("slow", 30*time.Millisecond)
	fast := makeAnalyzer("fast", 0)
	require.NoError(t, h.registry.Register(plugin.Descriptor{
		Name: "slow", Group: plugin.GroupAnalyzers,
		Factory: func(plugin.Config) (any, error) { return slow, nil },
	}))
	require.NoError(t, h.registry.Register(plugin.Descriptor{
		Name: "fast", Group: plugin.GroupAnalyzers,
		Factory: func(plugin.Config) (any, error) { return fast, nil },
	}))
	h.registry.Settings().EnabledAnalyzers = []string{"slow", "fast"}

	res, err := h.pipeline.Ingest(context.Background(), &core.Source{Name: "notes.txt", Data: []byte("ordering")}, nil)
	require.NoError(t, err)
	require.Len(t, res.Doc.Entities, 2)
	assert.Equal(t, "SLOW", res.Doc.Entities[0].Name)
	assert.Equal(t, "FAST", res.Doc.Entities[1].Name)
}
