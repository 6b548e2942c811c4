package docit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/ingestion"
	"github.com/poiesic/docit/mock"
	"github.com/poiesic/docit/plugin"
)

// openSystem builds a System over the in-memory stores with a mock
// embedder standing in for the network-backed default.
func openSystem(t *testing.T, opts ...SystemOption) *System {
	t.Helper()

	settings := plugin.DefaultSettings()
	settings.DefaultEmbedder = "mock"

	opts = append([]SystemOption{
		WithSettings(settings),
		WithPlugins(plugin.Descriptor{
			Name:    "mock",
			Group:   plugin.GroupEmbedders,
			Factory: func(cfg plugin.Config) (any, error) { return mock.NewMockEmbedder(), nil },
		}),
	}, opts...)

	system, err := Open(opts...)
	require.NoError(t, err)
	require.NotNil(t, system)
	t.Cleanup(func() { system.Close() })
	return system
}

func TestOpen(t *testing.T) {
	t.Run("defaults wire registry and pipeline", func(t *testing.T) {
		system := openSystem(t)

		assert.NotNil(t, system.Registry())
		assert.NotNil(t, system.Settings())
		assert.NotEmpty(t, system.Registry().Descriptors())
	})

	t.Run("built-in manifest covers every stage", func(t *testing.T) {
		system := openSystem(t)

		registry := system.Registry()
		assert.Contains(t, registry.Names(plugin.GroupParsers), "text")
		assert.Contains(t, registry.Names(plugin.GroupChunkers), "fixed")
		assert.Contains(t, registry.Names(plugin.GroupChunkers), "recursive")
		assert.Contains(t, registry.Names(plugin.GroupEmbedders), "openai")
		assert.Contains(t, registry.Names(plugin.GroupLLMProviders), "openai")
		assert.Contains(t, registry.Names(plugin.GroupAnalyzers), "stats")
		assert.Contains(t, registry.Names(plugin.GroupAnalyzers), "entities")
		assert.Contains(t, registry.Names(plugin.GroupDocumentStores), "badger")
		assert.Contains(t, registry.Names(plugin.GroupVectorStores), "chromem")
		assert.Contains(t, registry.Names(plugin.GroupStructuredStores), "memory")
	})

	t.Run("image parser only registered with an OCR provider", func(t *testing.T) {
		system := openSystem(t)
		assert.NotContains(t, system.Registry().Names(plugin.GroupParsers), "image")

		withOCR := openSystem(t, WithOCRProvider(&mock.MockOCRProvider{}))
		assert.Contains(t, withOCR.Registry().Names(plugin.GroupParsers), "image")
	})

	t.Run("invalid pipeline option fails open", func(t *testing.T) {
		system, err := Open(WithPipelineOptions(ingestion.WithBatchSize(0)))
		assert.Error(t, err)
		assert.Nil(t, system)
	})
}

func TestSystem_IngestAndSearch(t *testing.T) {
	system := openSystem(t)
	ctx := context.Background()

	src := &core.Source{
		Name: "notes.txt",
		Data: []byte("The tides follow the moon. Harbors plan around them."),
	}
	res, err := system.Ingest(ctx, src, nil)
	require.NoError(t, err)
	require.Equal(t, ingestion.StatePersisted, res.State)

	matches, err := system.Search(ctx, "The tides follow the moon. Harbors plan around them.", 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, res.DocId, matches[0].DocId)
}

func TestSystem_IngestFile(t *testing.T) {
	system := openSystem(t)
	ctx := context.Background()

	t.Run("reads and ingests the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.md")
		require.NoError(t, os.WriteFile(path, []byte("# Q3\n\nRevenue grew."), 0644))

		res, err := system.IngestFile(ctx, path, nil)
		require.NoError(t, err)
		assert.Equal(t, ingestion.StatePersisted, res.State)
		assert.Equal(t, core.TypeMarkdown, res.Doc.Type)
		assert.Equal(t, "report.md", res.Doc.Name)
	})

	t.Run("missing file", func(t *testing.T) {
		res, err := system.IngestFile(ctx, filepath.Join(t.TempDir(), "absent.txt"), nil)
		assert.Error(t, err)
		assert.Nil(t, res)
	})
}

func TestSystem_Delete(t *testing.T) {
	system := openSystem(t)
	ctx := context.Background()

	src := &core.Source{Name: "gone.txt", Data: []byte("short lived content")}
	res, err := system.Ingest(ctx, src, nil)
	require.NoError(t, err)

	require.NoError(t, system.Delete(ctx, res.DocId))

	docStore, err := system.Registry().DocumentStore()
	require.NoError(t, err)
	_, err = docStore.Get(ctx, res.DocId)
	assert.ErrorIs(t, err, plugin.ErrRecordNotFound)

	matches, err := system.Search(ctx, "short lived content", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	t.Run("unknown document", func(t *testing.T) {
		err := system.Delete(ctx, core.ID("no-such-doc"))
		assert.ErrorIs(t, err, plugin.ErrRecordNotFound)
	})
}

func TestSystem_Close(t *testing.T) {
	system := openSystem(t)
	assert.NoError(t, system.Close())
}
