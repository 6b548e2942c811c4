package mock

import (
	"context"
	"sync"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

// MockParser is a test double for plugin.Parser.
type MockParser struct {
	// ParseFunc is called by Parse if set. If nil, the parser returns a
	// document whose content is the source bytes verbatim.
	ParseFunc func(ctx context.Context, src *core.Source) (*core.Document, error)

	// Types overrides SupportedTypes. Defaults to text only.
	Types []core.DocumentType

	mu        sync.Mutex
	callCount int
}

var _ plugin.Parser = (*MockParser)(nil)

// NewMockParser creates a mock parser with default pass-through behavior.
func NewMockParser() *MockParser {
	return &MockParser{}
}

func (m *MockParser) Parse(ctx context.Context, src *core.Source) (*core.Document, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.ParseFunc != nil {
		return m.ParseFunc(ctx, src)
	}

	return &core.Document{
		Name:     src.Name,
		Type:     core.TypeFromName(src.Name),
		Content:  string(src.Data),
		Metadata: map[string]any{"page_count": 1},
	}, nil
}

func (m *MockParser) SupportedTypes() []core.DocumentType {
	if len(m.Types) > 0 {
		return m.Types
	}
	return []core.DocumentType{core.TypeText}
}

// CallCount returns the number of times Parse was called.
func (m *MockParser) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// MockChunker is a test double for plugin.Chunker.
type MockChunker struct {
	// ChunkFunc is called by Chunk if set. If nil, the chunker produces
	// a single chunk spanning the whole document content.
	ChunkFunc func(ctx context.Context, doc *core.Document) ([]*core.Chunk, error)

	mu        sync.Mutex
	callCount int
}

var _ plugin.Chunker = (*MockChunker)(nil)

// NewMockChunker creates a mock chunker with default single-chunk behavior.
func NewMockChunker() *MockChunker {
	return &MockChunker{}
}

func (m *MockChunker) Chunk(ctx context.Context, doc *core.Document) ([]*core.Chunk, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.ChunkFunc != nil {
		return m.ChunkFunc(ctx, doc)
	}

	return []*core.Chunk{
		{
			Id:         core.ChunkID(doc.Id, 0),
			DocId:      doc.Id,
			OrderIndex: 0,
			Text:       doc.Content,
		},
	}, nil
}

// CallCount returns the number of times Chunk was called.
func (m *MockChunker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// MockAnalyzer is a test double for plugin.Analyzer.
type MockAnalyzer struct {
	// Name is returned by Kind. Defaults to "mock".
	Name string

	// AnalyzeFunc is called by Analyze if set. If nil, the analyzer
	// returns an empty result.
	AnalyzeFunc func(ctx context.Context, doc *core.Document) (*core.AnalysisResult, error)

	mu        sync.Mutex
	callCount int
}

var _ plugin.Analyzer = (*MockAnalyzer)(nil)

func (m *MockAnalyzer) Kind() string {
	if m.Name != "" {
		return m.Name
	}
	return "mock"
}

func (m *MockAnalyzer) Analyze(ctx context.Context, doc *core.Document) (*core.AnalysisResult, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, doc)
	}
	return &core.AnalysisResult{Analyzer: m.Kind()}, nil
}

// CallCount returns the number of times Analyze was called.
func (m *MockAnalyzer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
