// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package docit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/docit/analyzers/entities"
	"github.com/poiesic/docit/analyzers/stats"
	"github.com/poiesic/docit/chunkers/fixed"
	"github.com/poiesic/docit/chunkers/recursive"
	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/ingestion"
	"github.com/poiesic/docit/parsers/image"
	"github.com/poiesic/docit/parsers/text"
	"github.com/poiesic/docit/plugin"
	"github.com/poiesic/docit/providers/openai"
	"github.com/poiesic/docit/search"
	"github.com/poiesic/docit/stores/badger"
	"github.com/poiesic/docit/stores/chromem"
	"github.com/poiesic/docit/stores/memory"
)

// System wires settings, the plugin registry, the ingestion pipeline
// and the searcher into one handle with a single Close.
type System struct {
	settings *plugin.Settings
	registry *plugin.Registry
	pipeline *ingestion.Pipeline
	logger   *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	settings     *plugin.Settings
	extra        plugin.Manifest
	ocr          plugin.OCRProvider
	logger       *slog.Logger
	pipelineOpts []ingestion.Option
}

// WithSettings replaces the default settings.
func WithSettings(settings *plugin.Settings) SystemOption {
	return func(o *systemOptions) {
		o.settings = settings
	}
}

// WithPlugins registers additional plugin descriptors after the
// built-in manifest, so callers can add or shadow plugins.
func WithPlugins(descriptors ...plugin.Descriptor) SystemOption {
	return func(o *systemOptions) {
		o.extra = append(o.extra, descriptors...)
	}
}

// WithOCRProvider supplies the OCR backend the image parser needs. The
// image parser is only registered when a provider is given.
func WithOCRProvider(ocr plugin.OCRProvider) SystemOption {
	return func(o *systemOptions) {
		o.ocr = ocr
	}
}

// WithSystemLogger sets a custom logger for the registry and the
// pipeline. Default is slog.Default().
func WithSystemLogger(logger *slog.Logger) SystemOption {
	return func(o *systemOptions) {
		o.logger = logger
	}
}

// WithPipelineOptions forwards options to the ingestion pipeline.
func WithPipelineOptions(opts ...ingestion.Option) SystemOption {
	return func(o *systemOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// BuiltinManifest returns the descriptors of every plugin shipped
// in-tree, minus the image parser, which needs an OCR provider (see
// WithOCRProvider).
func BuiltinManifest() plugin.Manifest {
	var manifest plugin.Manifest
	manifest = append(manifest, text.Descriptor())
	manifest = append(manifest, fixed.Descriptor())
	manifest = append(manifest, recursive.Descriptor())
	manifest = append(manifest, openai.Descriptors()...)
	manifest = append(manifest, stats.Descriptor())
	manifest = append(manifest, entities.Descriptor())
	manifest = append(manifest, memory.Descriptors()...)
	manifest = append(manifest, badger.Descriptors()...)
	manifest = append(manifest, chromem.Descriptor())
	return manifest
}

// Open assembles a System: the built-in manifest plus any extra
// descriptors loaded into a registry over the given settings, and an
// ingestion pipeline on top. With no options everything runs on the
// in-memory stores.
func Open(opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		settings: plugin.DefaultSettings(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	registry := plugin.NewRegistry(options.settings, plugin.WithLogger(options.logger))
	registry.Load(BuiltinManifest())
	if options.ocr != nil {
		registry.Load(plugin.Manifest{image.Descriptor(options.ocr)})
	}
	if len(options.extra) > 0 {
		registry.Load(options.extra)
	}

	pipelineOpts := append(
		[]ingestion.Option{ingestion.WithLogger(options.logger)},
		options.pipelineOpts...,
	)
	pipeline, err := ingestion.NewPipeline(registry, pipelineOpts...)
	if err != nil {
		registry.Close()
		return nil, err
	}

	return &System{
		settings: options.settings,
		registry: registry,
		pipeline: pipeline,
		logger:   options.logger,
	}, nil
}

// Close releases the pipeline's worker pools and every plugin instance
// the registry constructed.
func (s *System) Close() error {
	s.pipeline.Release()
	if err := s.registry.Close(); err != nil {
		s.logger.Error("error closing plugin instances", "err", err)
		return err
	}
	return nil
}

// Registry exposes the plugin registry, for listing descriptors or
// resolving plugins directly.
func (s *System) Registry() *plugin.Registry {
	return s.registry
}

// Settings exposes the live settings the registry resolves against.
func (s *System) Settings() *plugin.Settings {
	return s.settings
}

// Ingest runs one source through the pipeline.
func (s *System) Ingest(ctx context.Context, src *core.Source, opts *ingestion.IngestOptions) (*ingestion.Result, error) {
	return s.pipeline.Ingest(ctx, src, opts)
}

// IngestFile reads a file and ingests it, inferring the document type
// from the file name.
func (s *System) IngestFile(ctx context.Context, path string, opts *ingestion.IngestOptions) (*ingestion.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	src := &core.Source{
		Name: filepath.Base(path),
		Path: path,
		Data: data,
	}
	return s.pipeline.Ingest(ctx, src, opts)
}

// NewSearcher builds a searcher over the configured default embedder
// and vector store.
func (s *System) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	embedder, err := s.registry.Embedder("")
	if err != nil {
		return nil, err
	}
	vectors, err := s.registry.VectorStore()
	if err != nil {
		return nil, err
	}
	return search.NewSearcher(embedder, vectors, opts...)
}

// Search embeds the query and returns the closest chunks, best first.
func (s *System) Search(ctx context.Context, query string, maxHits int) ([]core.ChunkMatch, error) {
	searcher, err := s.NewSearcher(search.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	return searcher.Find(ctx, query, maxHits)
}

// Delete removes a document and its derived records from all three
// stores. The write is best-effort: the document record goes first so
// a surviving document never points at deleted artifacts, then the
// structured records, then the embeddings. Per-store failures are
// joined into the returned error.
func (s *System) Delete(ctx context.Context, docId core.ID) error {
	docStore, err := s.registry.DocumentStore()
	if err != nil {
		return err
	}
	vecStore, err := s.registry.VectorStore()
	if err != nil {
		return err
	}
	structStore, err := s.registry.StructuredStore()
	if err != nil {
		return err
	}

	var errs []error

	// The stored document names the structured records to remove.
	doc, getErr := docStore.Get(ctx, docId)
	if getErr != nil && !errors.Is(getErr, plugin.ErrRecordNotFound) {
		errs = append(errs, fmt.Errorf("documents: %w", getErr))
	}

	if getErr == nil {
		if err := docStore.Delete(ctx, docId); err != nil {
			errs = append(errs, fmt.Errorf("documents: %w", err))
		}
		if err := structStore.DeleteBatch(ctx, "entities", entityIds(doc)); err != nil {
			errs = append(errs, fmt.Errorf("structured: %w", err))
		}
		if err := structStore.DeleteBatch(ctx, "relationships", relationshipIds(doc)); err != nil {
			errs = append(errs, fmt.Errorf("structured: %w", err))
		}
	}

	if err := vecStore.DeleteByDocId(ctx, docId); err != nil {
		errs = append(errs, fmt.Errorf("vectors: %w", err))
	}

	if len(errs) == 0 && errors.Is(getErr, plugin.ErrRecordNotFound) {
		return getErr
	}
	return errors.Join(errs...)
}

func entityIds(doc *core.Document) []core.ID {
	ids := make([]core.ID, 0, len(doc.Entities))
	for _, e := range doc.Entities {
		ids = append(ids, e.Id)
	}
	return ids
}

func relationshipIds(doc *core.Document) []core.ID {
	ids := make([]core.ID, 0, len(doc.Relationships))
	for _, r := range doc.Relationships {
		ids = append(ids, r.Id)
	}
	return ids
}
