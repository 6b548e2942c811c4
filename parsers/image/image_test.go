package image

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/mock"
	"github.com/poiesic/docit/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ExtractsText(t *testing.T) {
	ocr := &mock.MockOCRProvider{
		ExtractTextFunc: func(ctx context.Context, image []byte) (string, error) {
			return "text recovered from scan", nil
		},
	}
	parser, err := New(ocr)
	require.NoError(t, err)

	src := &core.Source{Name: "scan.png", Data: []byte{0x89, 0x50, 0x4e, 0x47}}
	doc, err := parser.Parse(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, core.TypePicture, doc.Type)
	assert.Equal(t, "text recovered from scan", doc.Content)

	require.Len(t, doc.Elements, 1)
	element := doc.Elements[0]
	assert.Equal(t, core.ElementPicture, element.Kind)
	assert.NotEmpty(t, element.Id)
	require.NotNil(t, element.Picture)
	assert.Equal(t, src.Data, element.Picture.Content)
	assert.Equal(t, len(src.Data), element.Picture.Size)
}

func TestParser_OCRFailure(t *testing.T) {
	ocr := &mock.MockOCRProvider{
		ExtractTextFunc: func(ctx context.Context, image []byte) (string, error) {
			return "", errors.New("unreadable image")
		},
	}
	parser, err := New(ocr)
	require.NoError(t, err)

	_, err = parser.Parse(context.Background(), &core.Source{Name: "scan.png", Data: []byte{0x01}})
	require.Error(t, err)
	assert.ErrorIs(t, err, plugin.ErrParsing)
}

func TestNew_RequiresProvider(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, plugin.ErrConfiguration)
}
