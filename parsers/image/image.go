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


// Package image implements an OCR-backed parser for picture sources.
// The extracted text becomes the document content and the raw bytes
// are kept as a picture element.
package image

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

// Parser turns image bytes into a document by delegating text
// extraction to an OCR provider.
type Parser struct {
	ocr plugin.OCRProvider
}

var _ plugin.Parser = (*Parser)(nil)

// New creates an image parser over the given OCR provider.
func New(ocr plugin.OCRProvider) (*Parser, error) {
	if ocr == nil {
		return nil, fmt.Errorf("%w: image parser requires an OCR provider", plugin.ErrConfiguration)
	}
	return &Parser{ocr: ocr}, nil
}

func (p *Parser) SupportedTypes() []core.DocumentType {
	return []core.DocumentType{core.TypePicture}
}

func (p *Parser) Parse(ctx context.Context, src *core.Source) (*core.Document, error) {
	text, err := p.ocr.ExtractText(ctx, src.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: extracting text from %q: %w", plugin.ErrParsing, src.Name, err)
	}

	return &core.Document{
		Name:    src.Name,
		Type:    core.TypePicture,
		Content: text,
		Metadata: map[string]any{
			"page_count": 1,
		},
		Elements: []core.Element{
			{
				Id:   core.ID(uuid.NewString()),
				Kind: core.ElementPicture,
				Page: 1,
				Picture: &core.Picture{
					Content: src.Data,
					Size:    len(src.Data),
				},
			},
		},
	}, nil
}

// Descriptor advertises the parser under the name "image", bound to
// the given OCR provider. The parser is only registered when the
// embedding application configured an OCR backend.
func Descriptor(ocr plugin.OCRProvider) plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "image",
		Group:   plugin.GroupParsers,
		Factory: func(cfg plugin.Config) (any, error) { return New(ocr) },
	}
}
