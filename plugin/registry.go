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


package plugin

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/poiesic/docit/core"
)

// Group names a capability role interchangeable plugins can fulfill.
type Group string

const (
	GroupParsers             Group = "parsers"
	GroupChunkers            Group = "chunkers"
	GroupEmbedders           Group = "embedders"
	GroupAnalyzers           Group = "analyzers"
	GroupLLMProviders        Group = "llm_providers"
	GroupOCRProviders        Group = "ocr_providers"
	GroupMultimodalProviders Group = "multimodal_providers"
	GroupKnowledgeProviders  Group = "knowledge_providers"
	GroupDocumentStores      Group = "document_stores"
	GroupVectorStores        Group = "vector_stores"
	GroupStructuredStores    Group = "structured_stores"
	GroupReviewers           Group = "reviewers"
	GroupProposalGenerators  Group = "proposal_generators"
)

// Groups lists every capability group the registry serves.
var Groups = []Group{
	GroupParsers,
	GroupChunkers,
	GroupEmbedders,
	GroupAnalyzers,
	GroupLLMProviders,
	GroupOCRProviders,
	GroupMultimodalProviders,
	GroupKnowledgeProviders,
	GroupDocumentStores,
	GroupVectorStores,
	GroupStructuredStores,
	GroupReviewers,
	GroupProposalGenerators,
}

// implements maps each group to the check that a constructed instance
// actually satisfies the group's contract. A factory returning the
// wrong type is a registration bug caught at resolution time.
var implements = map[Group]func(any) bool{
	GroupParsers:             func(v any) bool { _, ok := v.(Parser); return ok },
	GroupChunkers:            func(v any) bool { _, ok := v.(Chunker); return ok },
	GroupEmbedders:           func(v any) bool { _, ok := v.(Embedder); return ok },
	GroupAnalyzers:           func(v any) bool { _, ok := v.(Analyzer); return ok },
	GroupLLMProviders:        func(v any) bool { _, ok := v.(LLMProvider); return ok },
	GroupOCRProviders:        func(v any) bool { _, ok := v.(OCRProvider); return ok },
	GroupMultimodalProviders: func(v any) bool { _, ok := v.(MultimodalProvider); return ok },
	GroupKnowledgeProviders:  func(v any) bool { _, ok := v.(KnowledgeProvider); return ok },
	GroupDocumentStores:      func(v any) bool { _, ok := v.(DocumentStore); return ok },
	GroupVectorStores:        func(v any) bool { _, ok := v.(VectorStore); return ok },
	GroupStructuredStores:    func(v any) bool { _, ok := v.(StructuredStore); return ok },
	GroupReviewers:           func(v any) bool { _, ok := v.(Reviewer); return ok },
	GroupProposalGenerators:  func(v any) bool { _, ok := v.(ProposalGenerator); return ok },
}

// Factory constructs a plugin instance from its validated
// configuration. The returned value must implement the contract of the
// group the descriptor was registered under.
type Factory func(cfg Config) (any, error)

// Descriptor advertises one plugin to the registry.
type Descriptor struct {
	// Name is unique within the capability group.
	Name string

	// Group is the capability role the plugin fulfills.
	Group Group

	// Factory builds an instance from validated configuration.
	Factory Factory

	// Schema enumerates the configuration options the factory
	// recognizes. Empty means the plugin takes no options.
	Schema Schema
}

// Manifest is the registration table handed to the registry at
// startup: every plugin the process makes available, built-in or
// external.
type Manifest []Descriptor

// Registry maps (capability group, plugin name) to validated,
// ready-to-use instances. Instances are constructed lazily, cached,
// and shared; construction failures are not cached so a fixed
// configuration can succeed on a later resolve.
type Registry struct {
	settings *Settings
	logger   *slog.Logger

	mu        sync.RWMutex
	plugins   map[Group]map[string]Descriptor
	instances map[instanceKey]any
}

type instanceKey struct {
	group Group
	name  string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for registration and resolution
// diagnostics.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry bound to the given settings.
// A nil settings gets DefaultSettings.
func NewRegistry(settings *Settings, opts ...RegistryOption) *Registry {
	if settings == nil {
		settings = DefaultSettings()
	}

	r := &Registry{
		settings:  settings,
		logger:    slog.Default().With("component", "plugin-registry"),
		plugins:   make(map[Group]map[string]Descriptor),
		instances: make(map[instanceKey]any),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settings returns the settings the registry resolves against.
func (r *Registry) Settings() *Settings {
	return r.settings
}

// Register validates one descriptor and adds it to the registry.
// Duplicate (group, name) pairs and malformed descriptors are
// rejected.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("%w: descriptor has no name", ErrConfiguration)
	}
	if _, ok := implements[d.Group]; !ok {
		return fmt.Errorf("%w: descriptor %q names unknown group %q", ErrConfiguration, d.Name, d.Group)
	}
	if d.Factory == nil {
		return fmt.Errorf("%w: descriptor %s/%s has no factory", ErrConfiguration, d.Group, d.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	group := r.plugins[d.Group]
	if group == nil {
		group = make(map[string]Descriptor)
		r.plugins[d.Group] = group
	}
	if _, exists := group[d.Name]; exists {
		return fmt.Errorf("%w: descriptor %s/%s already registered", ErrConfiguration, d.Group, d.Name)
	}

	group[d.Name] = d
	return nil
}

// Load registers every descriptor of a manifest, failing soft: a
// malformed descriptor is logged and skipped so it never blocks
// discovery of the remaining plugins. Returns the number registered.
func (r *Registry) Load(manifest Manifest) int {
	registered := 0
	for _, d := range manifest {
		if err := r.Register(d); err != nil {
			r.logger.Warn("skipping plugin descriptor", "group", d.Group, "name", d.Name, "err", err)
			continue
		}
		registered++
	}
	r.logger.Debug("manifest loaded", "registered", registered, "skipped", len(manifest)-registered)
	return registered
}

// Resolve returns a ready-to-use instance for (group, name). An empty
// name resolves the group's configured default, falling back to the
// group's only registered plugin when the settings name none.
//
// The instance's configuration is validated against the descriptor's
// schema before construction; violations surface as ConfigError here,
// not at first use. One plugin failing to construct never prevents
// resolving a different plugin.
func (r *Registry) Resolve(group Group, name string) (any, error) {
	if name == "" {
		return r.resolveDefault(group)
	}

	key := instanceKey{group: group, name: name}

	r.mu.RLock()
	if inst, ok := r.instances[key]; ok {
		r.mu.RUnlock()
		return inst, nil
	}
	desc, ok := r.plugins[group][name]
	r.mu.RUnlock()

	if !ok {
		return nil, &NotFoundError{Group: group, Name: name}
	}

	cfg, err := desc.Schema.Validate(desc.Name, r.settings.ConfigFor(group, name), r.logger)
	if err != nil {
		return nil, err
	}

	inst, err := desc.Factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("constructing plugin %s/%s: %w", group, name, err)
	}
	if !implements[group](inst) {
		return nil, &ConfigError{
			Plugin: name,
			Reason: fmt.Sprintf("factory result %T does not implement the %s contract", inst, group),
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Lost a race with a concurrent resolve: keep the first instance.
	if prior, ok := r.instances[key]; ok {
		closeQuietly(inst, r.logger)
		return prior, nil
	}
	r.instances[key] = inst

	r.logger.Debug("plugin resolved", "group", group, "name", name)
	return inst, nil
}

func (r *Registry) resolveDefault(group Group) (any, error) {
	if name := r.settings.DefaultFor(group); name != "" {
		return r.Resolve(group, name)
	}

	r.mu.RLock()
	var only string
	count := 0
	for name := range r.plugins[group] {
		only = name
		count++
	}
	r.mu.RUnlock()

	// Exactly one registered plugin makes an unambiguous default.
	if count == 1 {
		return r.Resolve(group, only)
	}
	return nil, &NotFoundError{Group: group}
}

// Names returns the registered plugin names for a group, sorted.
func (r *Registry) Names(group Group) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins[group]))
	for name := range r.plugins[group] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns every registered descriptor, sorted by group
// then name. Used by the CLI plugin listing.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Descriptor
	for _, group := range Groups {
		names := make([]string, 0, len(r.plugins[group]))
		for name := range r.plugins[group] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, r.plugins[group][name])
		}
	}
	return out
}

// Close releases every cached instance that holds resources.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, inst := range r.instances {
		if closer, ok := inst.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s/%s: %w", key.group, key.name, err))
			}
		}
		delete(r.instances, key)
	}
	return errors.Join(errs...)
}

func closeQuietly(inst any, logger *slog.Logger) {
	if closer, ok := inst.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("closing redundant plugin instance", "err", err)
		}
	}
}

// Parser resolves a parser by name, or the default parser for an empty
// name.
func (r *Registry) Parser(name string) (Parser, error) {
	inst, err := r.Resolve(GroupParsers, name)
	if err != nil {
		return nil, err
	}
	return inst.(Parser), nil
}

// ParserFor resolves the parser for a source: an explicit name wins,
// else the settings' type mapping for the source's document type, else
// the default parser.
func (r *Registry) ParserFor(name string, docType core.DocumentType) (Parser, error) {
	if name == "" {
		name = r.settings.ParserNameFor(docType)
	}
	return r.Parser(name)
}

// Chunker resolves a chunker by name, or the default for an empty name.
func (r *Registry) Chunker(name string) (Chunker, error) {
	inst, err := r.Resolve(GroupChunkers, name)
	if err != nil {
		return nil, err
	}
	return inst.(Chunker), nil
}

// Embedder resolves an embedder by name, or the default for an empty
// name.
func (r *Registry) Embedder(name string) (Embedder, error) {
	inst, err := r.Resolve(GroupEmbedders, name)
	if err != nil {
		return nil, err
	}
	return inst.(Embedder), nil
}

// Analyzer resolves an analyzer by name.
func (r *Registry) Analyzer(name string) (Analyzer, error) {
	inst, err := r.Resolve(GroupAnalyzers, name)
	if err != nil {
		return nil, err
	}
	return inst.(Analyzer), nil
}

// LLMProvider resolves a completion backend by name, or the default
// for an empty name.
func (r *Registry) LLMProvider(name string) (LLMProvider, error) {
	inst, err := r.Resolve(GroupLLMProviders, name)
	if err != nil {
		return nil, err
	}
	return inst.(LLMProvider), nil
}

// OCRProvider resolves an OCR backend by name, or the group's only
// plugin for an empty name.
func (r *Registry) OCRProvider(name string) (OCRProvider, error) {
	inst, err := r.Resolve(GroupOCRProviders, name)
	if err != nil {
		return nil, err
	}
	return inst.(OCRProvider), nil
}

// MultimodalProvider resolves a multimodal backend by name.
func (r *Registry) MultimodalProvider(name string) (MultimodalProvider, error) {
	inst, err := r.Resolve(GroupMultimodalProviders, name)
	if err != nil {
		return nil, err
	}
	return inst.(MultimodalProvider), nil
}

// KnowledgeProvider resolves a knowledge backend by name.
func (r *Registry) KnowledgeProvider(name string) (KnowledgeProvider, error) {
	inst, err := r.Resolve(GroupKnowledgeProviders, name)
	if err != nil {
		return nil, err
	}
	return inst.(KnowledgeProvider), nil
}

// Reviewer resolves a reviewer by name.
func (r *Registry) Reviewer(name string) (Reviewer, error) {
	inst, err := r.Resolve(GroupReviewers, name)
	if err != nil {
		return nil, err
	}
	return inst.(Reviewer), nil
}

// ProposalGenerator resolves a proposal generator by name.
func (r *Registry) ProposalGenerator(name string) (ProposalGenerator, error) {
	inst, err := r.Resolve(GroupProposalGenerators, name)
	if err != nil {
		return nil, err
	}
	return inst.(ProposalGenerator), nil
}

// DocumentStore resolves the configured document store.
func (r *Registry) DocumentStore() (DocumentStore, error) {
	inst, err := r.Resolve(GroupDocumentStores, "")
	if err != nil {
		return nil, err
	}
	return inst.(DocumentStore), nil
}

// VectorStore resolves the configured vector store.
func (r *Registry) VectorStore() (VectorStore, error) {
	inst, err := r.Resolve(GroupVectorStores, "")
	if err != nil {
		return nil, err
	}
	return inst.(VectorStore), nil
}

// StructuredStore resolves the configured structured store.
func (r *Registry) StructuredStore() (StructuredStore, error) {
	inst, err := r.Resolve(GroupStructuredStores, "")
	if err != nil {
		return nil, err
	}
	return inst.(StructuredStore), nil
}
