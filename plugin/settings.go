package plugin

import (
	"github.com/poiesic/docit/core"
)

// Settings selects which plugin serves each capability group and
// carries per-plugin configuration. It is plain data assembled by the
// caller (CLI flags, embedding application, tests); nothing here reads
// configuration files.
type Settings struct {
	// DefaultParser names the parser used when neither an explicit
	// name nor a ParserMapping entry applies.
	DefaultParser string

	// ParserMapping routes document types to parser names, consulted
	// before DefaultParser (e.g. picture → "image").
	ParserMapping map[core.DocumentType]string

	// DefaultChunker and DefaultEmbedder name the plugins driving the
	// chunking and embedding stages.
	DefaultChunker  string
	DefaultEmbedder string

	// DefaultLLMProvider names the completion backend analyzers and
	// reviewers resolve when they need one.
	DefaultLLMProvider string

	// EnabledAnalyzers lists the analyzers each run executes, in
	// order. Names that resolve to nothing are skipped with a warning.
	EnabledAnalyzers []string

	// DocumentStore, VectorStore and StructuredStore name the
	// persistence plugins for the three-way write.
	DocumentStore   string
	VectorStore     string
	StructuredStore string

	// PluginConfig carries per-plugin configuration, keyed by
	// "group/name" (see ConfigKeyFor).
	PluginConfig map[string]Config
}

// DefaultSettings returns settings wired to the zero-dependency
// in-memory plugins, suitable for tests and first runs.
func DefaultSettings() *Settings {
	return &Settings{
		DefaultParser:  "text",
		DefaultChunker: "fixed",
		ParserMapping: map[core.DocumentType]string{
			core.TypePicture: "image",
		},
		EnabledAnalyzers: []string{"stats"},
		DocumentStore:    "memory",
		VectorStore:      "memory",
		StructuredStore:  "memory",
		PluginConfig:     make(map[string]Config),
	}
}

// ConfigKeyFor builds the PluginConfig key for a (group, name) pair.
func ConfigKeyFor(group Group, name string) string {
	return string(group) + "/" + name
}

// ConfigFor returns the configuration for a plugin, never nil.
func (s *Settings) ConfigFor(group Group, name string) Config {
	if s.PluginConfig == nil {
		return Config{}
	}
	cfg, ok := s.PluginConfig[ConfigKeyFor(group, name)]
	if !ok {
		return Config{}
	}
	return cfg
}

// SetConfig replaces the configuration for a plugin.
func (s *Settings) SetConfig(group Group, name string, cfg Config) {
	if s.PluginConfig == nil {
		s.PluginConfig = make(map[string]Config)
	}
	s.PluginConfig[ConfigKeyFor(group, name)] = cfg
}

// DefaultFor returns the configured default plugin name for a group,
// or "" when the group has none (in which case resolution falls back
// to the group's only registered plugin, if exactly one exists).
func (s *Settings) DefaultFor(group Group) string {
	switch group {
	case GroupParsers:
		return s.DefaultParser
	case GroupChunkers:
		return s.DefaultChunker
	case GroupEmbedders:
		return s.DefaultEmbedder
	case GroupLLMProviders:
		return s.DefaultLLMProvider
	case GroupDocumentStores:
		return s.DocumentStore
	case GroupVectorStores:
		return s.VectorStore
	case GroupStructuredStores:
		return s.StructuredStore
	default:
		return ""
	}
}

// ParserNameFor picks the parser for a source: the mapping entry for
// its document type when present, else the default parser.
func (s *Settings) ParserNameFor(docType core.DocumentType) string {
	if name, ok := s.ParserMapping[docType]; ok {
		return name
	}
	return s.DefaultParser
}
