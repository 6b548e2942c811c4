package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

const (
	defaultBatchSize          = 16
	defaultRetryAttempts      = 3
	defaultRetryBaseDelay     = 500 * time.Millisecond
	defaultCallTimeout        = 60 * time.Second
	defaultMaxInflightBatches = 4
)

// Pipeline drives documents through parse, chunk, embed, analyze and
// persist using plugin instances resolved from the registry.
type Pipeline struct {
	registry *plugin.Registry

	parsePool   *ants.Pool
	analyzePool *ants.Pool
	locks       *runLocks
	gates       *embedGates

	batchSize      int
	retryAttempts  int
	retryBaseDelay time.Duration
	callTimeout    time.Duration
	busyWait       bool

	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for parser isolation and
// analyzer fan-out. Default is runtime.NumCPU() / 2, with a minimum
// of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pools
		if p.parsePool != nil {
			p.parsePool.Release()
		}
		if p.analyzePool != nil {
			p.analyzePool.Release()
		}

		parsePool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		analyzePool, err := ants.NewPool(size)
		if err != nil {
			parsePool.Release()
			return err
		}

		p.parsePool = parsePool
		p.analyzePool = analyzePool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithBatchSize sets how many chunk texts are embedded per batch call.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("batch size must be greater than zero, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithRetryPolicy sets the attempt count and backoff base delay for
// embedding batches. Only provider failures and timeouts are retried.
func WithRetryPolicy(attempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if attempts < 1 {
			return ErrInvalidMaxAttempts
		}
		p.retryAttempts = attempts
		p.retryBaseDelay = baseDelay
		return nil
	}
}

// WithCallTimeout bounds every external plugin call. Zero disables the
// timeout.
func WithCallTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		p.callTimeout = timeout
		return nil
	}
}

// WithBusyWait makes a run for an already in-flight document id wait
// for the holder instead of failing fast with ErrBusy.
func WithBusyWait(wait bool) Option {
	return func(p *Pipeline) error {
		p.busyWait = wait
		return nil
	}
}

// WithMaxInflightBatches bounds concurrent embed batches per embedder
// plugin, shared across all runs.
func WithMaxInflightBatches(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("max in-flight batches must be greater than zero, got %d", n)
		}
		p.gates = newEmbedGates(n)
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline over the registry.
func NewPipeline(registry *plugin.Registry, opts ...Option) (*Pipeline, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	parsePool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	analyzePool, err := ants.NewPool(poolSize)
	if err != nil {
		parsePool.Release()
		return nil, err
	}

	p := &Pipeline{
		registry:       registry,
		parsePool:      parsePool,
		analyzePool:    analyzePool,
		locks:          newRunLocks(),
		gates:          newEmbedGates(defaultMaxInflightBatches),
		batchSize:      defaultBatchSize,
		retryAttempts:  defaultRetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
		callTimeout:    defaultCallTimeout,
		logger:         slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.parsePool != nil {
		p.parsePool.Release()
	}
	if p.analyzePool != nil {
		p.analyzePool.Release()
	}
}

// IngestOptions holds optional per-run parameters. Empty plugin names
// resolve to the configured defaults.
type IngestOptions struct {
	Parser   string  // parser name; else the type mapping, else the default
	Chunker  string  // chunker name
	Embedder string  // embedder name
	DocId    core.ID // document id; else derived from the fingerprint
}

// Ingest drives one source through the full stage sequence and returns
// the run result. The result is also returned alongside a RunError on
// failure, carrying the last state reached, the per-store outcome and
// the partially populated document.
//
// Ingestion is idempotent: the same source bytes resolve to the same
// document id, and derived artifacts (chunks, embeddings, analysis
// records) are replaced, never duplicated, on re-ingestion.
func (p *Pipeline) Ingest(ctx context.Context, src *core.Source, opts *IngestOptions) (*Result, error) {
	if src == nil || len(src.Data) == 0 {
		return nil, ErrSourceRequired
	}
	if opts == nil {
		opts = &IngestOptions{}
	}

	fingerprint := core.Fingerprint(src.Data)
	docId := opts.DocId
	if docId == "" {
		docId = core.DocumentID(fingerprint)
	}

	res := &Result{
		RunId: uuid.NewString(),
		DocId: docId,
		State: StateReceived,
	}
	logger := p.logger.With("run", res.RunId, "doc", docId)

	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	// At most one run per document id.
	if err := p.locks.acquire(ctx, docId, p.busyWait); err != nil {
		return res, p.fail(res, err)
	}
	defer p.locks.release(docId)

	docType := core.TypeFromName(src.Name)
	settings := p.registry.Settings()

	parserName := opts.Parser
	if parserName == "" {
		parserName = settings.ParserNameFor(docType)
	}
	// The chunker and embedder names are resolved eagerly: error wraps
	// carry the concrete plugin identity, and the embed gate must key
	// on it so the default and an explicit name share one bound.
	chunkerName := p.effectiveName(plugin.GroupChunkers, opts.Chunker)
	embedderName := p.effectiveName(plugin.GroupEmbedders, opts.Embedder)

	// Resolve every plugin up front so configuration problems surface
	// before any stage runs.
	parser, err := p.registry.Parser(parserName)
	if err != nil {
		return res, p.fail(res, err)
	}
	chunker, err := p.registry.Chunker(chunkerName)
	if err != nil {
		return res, p.fail(res, err)
	}
	embedder, err := p.registry.Embedder(embedderName)
	if err != nil {
		return res, p.fail(res, err)
	}
	docStore, err := p.registry.DocumentStore()
	if err != nil {
		return res, p.fail(res, err)
	}
	vecStore, err := p.registry.VectorStore()
	if err != nil {
		return res, p.fail(res, err)
	}
	structStore, err := p.registry.StructuredStore()
	if err != nil {
		return res, p.fail(res, err)
	}

	logger.Info("ingesting source", "name", src.Name, "bytes", len(src.Data), "parser", parserName)

	// RECEIVED -> PARSED
	doc, err := p.parse(ctx, parser, parserName, src)
	if err != nil {
		return res, p.fail(res, err)
	}
	doc.Id = docId
	doc.Fingerprint = fingerprint
	if doc.Name == "" {
		doc.Name = src.Name
	}
	if doc.Type == "" {
		doc.Type = docType
	}
	res.Doc = doc
	res.State = StateParsed

	// PARSED -> CHUNKED. The chunk set fully replaces any prior set for
	// the same document id.
	chunks, err := chunker.Chunk(ctx, doc)
	if err != nil {
		if !errors.Is(err, plugin.ErrWorkflow) {
			err = fmt.Errorf("%w: %w", plugin.ErrWorkflow, err)
		}
		return res, p.fail(res, fmt.Errorf("chunker %q: %w", chunkerName, err))
	}
	if err := core.ValidateChunkSet(doc.Id, chunks); err != nil {
		return res, p.fail(res, fmt.Errorf("%w: chunker %q: %w", plugin.ErrWorkflow, chunkerName, err))
	}
	doc.Chunks = chunks
	res.State = StateChunked

	// CHUNKED -> EMBEDDED, skipping chunks that can inherit their
	// embedding from the prior persisted revision.
	res.ResumedChunks = resume(ctx, docStore, doc, logger)
	if err := p.embed(ctx, embedder, embedderName, doc, logger); err != nil {
		// Keep completed batches resumable: best-effort save of the
		// partially embedded document before surfacing the failure.
		if saveErr := docStore.Save(ctx, doc); saveErr != nil {
			logger.Warn("could not persist partial embedding progress", "err", saveErr)
		}
		return res, p.fail(res, err)
	}
	res.State = StateEmbedded

	// EMBEDDED -> ANALYZED. Analyzer failures degrade, never abort.
	res.AnalyzerFailures = p.analyze(ctx, doc, logger)
	res.Degraded = len(res.AnalyzerFailures) > 0
	res.State = StateAnalyzed

	// ANALYZED -> PERSISTED, best-effort three-way write.
	res.StoreErrors = p.persist(ctx, doc, docStore, vecStore, structStore, logger)
	if len(res.StoreErrors) > 0 {
		errs := make([]error, 0, len(res.StoreErrors))
		for _, err := range res.StoreErrors {
			errs = append(errs, err)
		}
		return res, p.fail(res, errors.Join(errs...))
	}
	res.State = StatePersisted

	logger.Info("ingestion complete",
		"chunks", len(doc.Chunks),
		"resumed", res.ResumedChunks,
		"entities", len(doc.Entities),
		"degraded", res.Degraded,
		"elapsed", res.Elapsed)
	return res, nil
}

// parse invokes the parser on the isolation pool so CPU-bound parser
// work (external tool invocation included) never stalls the caller's
// scheduler, bounded by the per-call timeout.
func (p *Pipeline) parse(ctx context.Context, parser plugin.Parser, name string, src *core.Source) (*core.Document, error) {
	callCtx, cancel := p.callContext(ctx)
	defer cancel()

	type parseOutcome struct {
		doc *core.Document
		err error
	}
	outcome := make(chan parseOutcome, 1)

	if err := p.parsePool.Submit(func() {
		doc, err := parser.Parse(callCtx, src)
		outcome <- parseOutcome{doc: doc, err: err}
	}); err != nil {
		return nil, fmt.Errorf("%w: submitting parse: %w", plugin.ErrWorkflow, err)
	}

	select {
	case <-callCtx.Done():
		return nil, fmt.Errorf("%w: parser %q: %w", plugin.ErrParsing, name, callCtx.Err())
	case out := <-outcome:
		if out.err != nil {
			if !errors.Is(out.err, plugin.ErrParsing) {
				out.err = fmt.Errorf("%w: %w", plugin.ErrParsing, out.err)
			}
			return nil, fmt.Errorf("parser %q: %w", name, out.err)
		}
		if out.doc == nil {
			return nil, fmt.Errorf("%w: parser %q returned no document", plugin.ErrParsing, name)
		}
		return out.doc, nil
	}
}

func (p *Pipeline) fail(res *Result, err error) error {
	reached := res.State
	res.State = StateFailed
	return &RunError{State: reached, Err: err}
}

func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.callTimeout)
}

// effectiveName resolves the plugin name a run will actually use: the
// explicit per-run name, else the configured group default, else the
// group's only registered plugin. Returns "" when the group has
// neither, in which case resolution fails with a not-found error.
func (p *Pipeline) effectiveName(group plugin.Group, name string) string {
	if name != "" {
		return name
	}
	if def := p.registry.Settings().DefaultFor(group); def != "" {
		return def
	}
	if names := p.registry.Names(group); len(names) == 1 {
		return names[0]
	}
	return ""
}
