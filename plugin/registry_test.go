package plugin

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/docit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParser implements Parser for registry tests.
type testParser struct {
	label string
}

func (p *testParser) Parse(ctx context.Context, src *core.Source) (*core.Document, error) {
	return &core.Document{Name: src.Name, Content: string(src.Data)}, nil
}

func (p *testParser) SupportedTypes() []core.DocumentType {
	return []core.DocumentType{core.TypeText}
}

// testEmbedder implements Embedder for registry tests.
type testEmbedder struct{}

func (e *testEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *testEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return EmbedEach(ctx, e, texts)
}

// closableParser records whether the registry closed it.
type closableParser struct {
	testParser
	closed bool
}

func (p *closableParser) Close() error {
	p.closed = true
	return nil
}

func parserDescriptor(name string) Descriptor {
	return Descriptor{
		Name:    name,
		Group:   GroupParsers,
		Factory: func(cfg Config) (any, error) { return &testParser{label: name}, nil },
	}
}

func TestRegistry_Register_RejectsMalformedDescriptors(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
	}{
		{
			name: "empty name",
			desc: Descriptor{Group: GroupParsers, Factory: func(cfg Config) (any, error) { return &testParser{}, nil }},
		},
		{
			name: "unknown group",
			desc: Descriptor{Name: "x", Group: Group("sorters"), Factory: func(cfg Config) (any, error) { return &testParser{}, nil }},
		},
		{
			name: "nil factory",
			desc: Descriptor{Name: "x", Group: GroupParsers},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(nil)
			err := r.Register(tt.desc)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestRegistry_Register_RejectsDuplicates(t *testing.T) {
	r := NewRegistry(nil)

	require.NoError(t, r.Register(parserDescriptor("text")))
	err := r.Register(parserDescriptor("text"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestRegistry_Load_FailsSoft(t *testing.T) {
	r := NewRegistry(nil)

	registered := r.Load(Manifest{
		parserDescriptor("text"),
		{Name: "", Group: GroupParsers}, // malformed: no name, no factory
		{Name: "broken", Group: Group("nope"), Factory: func(cfg Config) (any, error) { return nil, nil }},
		{
			Name:    "embed",
			Group:   GroupEmbedders,
			Factory: func(cfg Config) (any, error) { return &testEmbedder{}, nil },
		},
	})

	assert.Equal(t, 2, registered)

	// The malformed descriptors must not block the valid ones, in the
	// same group or any other.
	p, err := r.Parser("text")
	require.NoError(t, err)
	assert.NotNil(t, p)

	e, err := r.Embedder("embed")
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestRegistry_Resolve_CachesInstances(t *testing.T) {
	calls := 0
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Descriptor{
		Name:  "text",
		Group: GroupParsers,
		Factory: func(cfg Config) (any, error) {
			calls++
			return &testParser{}, nil
		},
	}))

	first, err := r.Resolve(GroupParsers, "text")
	require.NoError(t, err)
	second, err := r.Resolve(GroupParsers, "text")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestRegistry_Resolve_UnknownName(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(parserDescriptor("text")))

	_, err := r.Resolve(GroupParsers, "pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, GroupParsers, nf.Group)
	assert.Equal(t, "pdf", nf.Name)
}

func TestRegistry_Resolve_ConfiguredDefault(t *testing.T) {
	settings := DefaultSettings()
	settings.DefaultParser = "markdown"

	r := NewRegistry(settings)
	require.NoError(t, r.Register(parserDescriptor("text")))
	require.NoError(t, r.Register(parserDescriptor("markdown")))

	inst, err := r.Resolve(GroupParsers, "")
	require.NoError(t, err)
	assert.Equal(t, "markdown", inst.(*testParser).label)
}

func TestRegistry_Resolve_SinglePluginFallback(t *testing.T) {
	settings := DefaultSettings()
	settings.DefaultEmbedder = "" // no default configured

	r := NewRegistry(settings)
	require.NoError(t, r.Register(Descriptor{
		Name:    "only",
		Group:   GroupEmbedders,
		Factory: func(cfg Config) (any, error) { return &testEmbedder{}, nil },
	}))

	// The group's only plugin is an unambiguous default.
	e, err := r.Embedder("")
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestRegistry_Resolve_AmbiguousDefault(t *testing.T) {
	settings := DefaultSettings()
	settings.DefaultParser = ""

	r := NewRegistry(settings)
	require.NoError(t, r.Register(parserDescriptor("text")))
	require.NoError(t, r.Register(parserDescriptor("markdown")))

	_, err := r.Resolve(GroupParsers, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_Resolve_ValidatesConfigBeforeConstruction(t *testing.T) {
	factoryRan := false
	settings := DefaultSettings()

	r := NewRegistry(settings)
	require.NoError(t, r.Register(Descriptor{
		Name:  "strict",
		Group: GroupParsers,
		Schema: Schema{
			{Key: "encoding", Kind: KindString, Required: true},
		},
		Factory: func(cfg Config) (any, error) {
			factoryRan = true
			return &testParser{}, nil
		},
	}))

	_, err := r.Resolve(GroupParsers, "strict")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.False(t, factoryRan, "factory must not run with invalid config")

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "strict", ce.Plugin)
	assert.Equal(t, "encoding", ce.Option)

	// Fixing the settings makes the same plugin resolvable: failures
	// are not cached.
	settings.SetConfig(GroupParsers, "strict", Config{"encoding": "utf-8"})
	_, err = r.Resolve(GroupParsers, "strict")
	require.NoError(t, err)
	assert.True(t, factoryRan)
}

func TestRegistry_Resolve_FactoryFailureIsolated(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Descriptor{
		Name:    "broken",
		Group:   GroupParsers,
		Factory: func(cfg Config) (any, error) { return nil, errors.New("backend unreachable") },
	}))
	require.NoError(t, r.Register(parserDescriptor("text")))

	_, err := r.Resolve(GroupParsers, "broken")
	require.Error(t, err)

	// The sibling plugin still resolves.
	p, err := r.Parser("text")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestRegistry_Resolve_RejectsWrongContract(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Descriptor{
		Name:    "imposter",
		Group:   GroupEmbedders,
		Factory: func(cfg Config) (any, error) { return &testParser{}, nil },
	}))

	_, err := r.Resolve(GroupEmbedders, "imposter")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestRegistry_ParserFor(t *testing.T) {
	settings := DefaultSettings()
	settings.DefaultParser = "text"
	settings.ParserMapping = map[core.DocumentType]string{
		core.TypePicture: "image",
	}

	r := NewRegistry(settings)
	require.NoError(t, r.Register(parserDescriptor("text")))
	require.NoError(t, r.Register(parserDescriptor("image")))
	require.NoError(t, r.Register(parserDescriptor("pdf")))

	t.Run("explicit name wins", func(t *testing.T) {
		p, err := r.ParserFor("pdf", core.TypePicture)
		require.NoError(t, err)
		assert.Equal(t, "pdf", p.(*testParser).label)
	})

	t.Run("mapping routes by type", func(t *testing.T) {
		p, err := r.ParserFor("", core.TypePicture)
		require.NoError(t, err)
		assert.Equal(t, "image", p.(*testParser).label)
	})

	t.Run("default for unmapped type", func(t *testing.T) {
		p, err := r.ParserFor("", core.TypeMarkdown)
		require.NoError(t, err)
		assert.Equal(t, "text", p.(*testParser).label)
	})
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(parserDescriptor("zebra")))
	require.NoError(t, r.Register(parserDescriptor("alpha")))

	assert.Equal(t, []string{"alpha", "zebra"}, r.Names(GroupParsers))
	assert.Empty(t, r.Names(GroupChunkers))
}

func TestRegistry_Descriptors_SortedByGroupThenName(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Descriptor{
		Name:    "embed",
		Group:   GroupEmbedders,
		Factory: func(cfg Config) (any, error) { return &testEmbedder{}, nil },
	}))
	require.NoError(t, r.Register(parserDescriptor("text")))
	require.NoError(t, r.Register(parserDescriptor("image")))

	descs := r.Descriptors()
	require.Len(t, descs, 3)
	assert.Equal(t, "image", descs[0].Name)
	assert.Equal(t, "text", descs[1].Name)
	assert.Equal(t, "embed", descs[2].Name)
}

func TestRegistry_Close_ReleasesInstances(t *testing.T) {
	closable := &closableParser{}
	r := NewRegistry(nil)
	require.NoError(t, r.Register(Descriptor{
		Name:    "closable",
		Group:   GroupParsers,
		Factory: func(cfg Config) (any, error) { return closable, nil },
	}))

	_, err := r.Resolve(GroupParsers, "closable")
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.True(t, closable.closed)
}

func TestRegistry_TypedGetters(t *testing.T) {
	r := NewRegistry(nil)
	for group := range implements {
		group := group
		require.NoError(t, r.Register(Descriptor{
			Name:    "missing-check",
			Group:   group,
			Factory: func(cfg Config) (any, error) { return nil, fmt.Errorf("unused") },
		}))
	}

	// Each typed getter surfaces resolution errors rather than
	// panicking on a nil instance.
	_, err := r.Chunker("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.LLMProvider("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.OCRProvider("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Analyzer("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Reviewer("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
