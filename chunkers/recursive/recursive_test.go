package recursive

import (
	"context"
	"strings"
	"testing"

	"github.com/poiesic/docit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDoc(content string) *core.Document {
	return &core.Document{
		Id:      "doc:test",
		Name:    "test.md",
		Type:    core.TypeText,
		Content: content,
	}
}

func TestChunker_SplitsOnParagraphs(t *testing.T) {
	chunker, err := New(40, 0)
	require.NoError(t, err)

	content := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
	chunks, err := chunker.Chunk(context.Background(), testDoc(content))
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(chunks), 2)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.OrderIndex)
		assert.Equal(t, core.ID("doc:test"), chunk.DocId)
		assert.LessOrEqual(t, len(chunk.Text), 40)
	}
	require.NoError(t, core.ValidateChunkSet("doc:test", chunks))
}

func TestChunker_Deterministic(t *testing.T) {
	chunker, err := New(100, 20)
	require.NoError(t, err)

	doc := testDoc(strings.Repeat("A sentence about nothing in particular. ", 15))
	first, err := chunker.Chunk(context.Background(), doc)
	require.NoError(t, err)
	second, err := chunker.Chunk(context.Background(), doc)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Id, second[i].Id)
		assert.Equal(t, first[i].Text, second[i].Text)
	}
}

func TestChunker_EmptyContent(t *testing.T) {
	chunker, err := New(100, 0)
	require.NoError(t, err)

	chunks, err := chunker.Chunk(context.Background(), testDoc(""))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(0, 0)
	assert.Error(t, err)

	_, err = New(10, 10)
	assert.Error(t, err)
}

func TestDescriptor(t *testing.T) {
	desc := Descriptor()
	assert.Equal(t, "recursive", desc.Name)

	instance, err := desc.Factory(map[string]any{"chunk_size": 50, "overlap": 0})
	require.NoError(t, err)
	_, ok := instance.(*Chunker)
	assert.True(t, ok)
}
