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


// Package recursive implements a structure-aware chunker on top of
// langchaingo's recursive character splitter: it prefers paragraph,
// then line, then word boundaries before falling back to a hard cut.
package recursive

import (
	"context"
	"fmt"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	defaultChunkSize = 1000
	defaultOverlap   = 100
)

// Chunker splits document content along natural text boundaries.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

var _ plugin.Chunker = (*Chunker)(nil)

// New creates a recursive chunker. Size and overlap are in characters,
// as counted by the underlying splitter.
func New(size, overlap int) (*Chunker, error) {
	if size < 1 {
		return nil, fmt.Errorf("chunk size must be greater than zero, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got %d for size %d", overlap, size)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
	)
	return &Chunker{splitter: splitter}, nil
}

func (c *Chunker) Chunk(ctx context.Context, doc *core.Document) ([]*core.Chunk, error) {
	if doc.Content == "" {
		return nil, nil
	}

	parts, err := c.splitter.SplitText(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: splitting text: %w", plugin.ErrWorkflow, err)
	}

	chunks := make([]*core.Chunk, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		index := len(chunks)
		chunks = append(chunks, &core.Chunk{
			Id:         core.ChunkID(doc.Id, index),
			DocId:      doc.Id,
			OrderIndex: index,
			Text:       part,
		})
	}
	return chunks, nil
}

// Descriptor advertises the chunker under the name "recursive".
func Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:  "recursive",
		Group: plugin.GroupChunkers,
		Factory: func(cfg plugin.Config) (any, error) {
			return New(
				cfg.Int("chunk_size", defaultChunkSize),
				cfg.Int("overlap", defaultOverlap),
			)
		},
		Schema: plugin.Schema{
			{Key: "chunk_size", Kind: plugin.KindInt, Default: defaultChunkSize, Description: "target chunk size in characters"},
			{Key: "overlap", Kind: plugin.KindInt, Default: defaultOverlap, Description: "characters shared between consecutive chunks"},
		},
	}
}
