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


// Package text implements the plain text and Markdown parser. Form
// feeds act as page breaks for page accounting; the parser never
// produces elements.
package text

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

// Parser handles plain text and Markdown sources.
type Parser struct{}

var _ plugin.Parser = (*Parser)(nil)

func New() *Parser {
	return &Parser{}
}

func (p *Parser) SupportedTypes() []core.DocumentType {
	return []core.DocumentType{core.TypeText, core.TypeMarkdown}
}

func (p *Parser) Parse(ctx context.Context, src *core.Source) (*core.Document, error) {
	if !utf8.Valid(src.Data) {
		return nil, fmt.Errorf("%w: %q is not valid UTF-8", plugin.ErrParsing, src.Name)
	}

	content := string(src.Data)
	pages := strings.Count(content, "\f") + 1

	return &core.Document{
		Name:    src.Name,
		Type:    core.TypeFromName(src.Name),
		Content: content,
		Metadata: map[string]any{
			"page_count": pages,
		},
	}, nil
}

// Descriptor advertises the parser under the name "text".
func Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "text",
		Group:   plugin.GroupParsers,
		Factory: func(cfg plugin.Config) (any, error) { return New(), nil },
	}
}
