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


// Package fixed implements a deterministic sliding-window chunker over
// runes. It is the default chunking strategy: no model, no heuristics,
// the same document always yields the same chunk set.
package fixed

import (
	"context"
	"fmt"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

const (
	defaultChunkSize = 1000
	defaultOverlap   = 100
)

// Chunker splits document content into fixed-size rune windows with a
// configurable overlap between consecutive windows.
type Chunker struct {
	size    int
	overlap int
}

var _ plugin.Chunker = (*Chunker)(nil)

// New creates a fixed-window chunker. Size is in runes; overlap is the
// number of runes each window shares with its predecessor and must be
// smaller than size.
func New(size, overlap int) (*Chunker, error) {
	if size < 1 {
		return nil, fmt.Errorf("chunk size must be greater than zero, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, chunk size), got %d for size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) Chunk(ctx context.Context, doc *core.Document) ([]*core.Chunk, error) {
	runes := []rune(doc.Content)
	if len(runes) == 0 {
		return nil, nil
	}

	step := c.size - c.overlap
	chunks := make([]*core.Chunk, 0, (len(runes)+step-1)/step)

	for start, index := 0, 0; start < len(runes); start, index = start+step, index+1 {
		end := min(start+c.size, len(runes))
		chunks = append(chunks, &core.Chunk{
			Id:         core.ChunkID(doc.Id, index),
			DocId:      doc.Id,
			OrderIndex: index,
			Text:       string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// Descriptor advertises the chunker under the name "fixed".
func Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:  "fixed",
		Group: plugin.GroupChunkers,
		Factory: func(cfg plugin.Config) (any, error) {
			return New(
				cfg.Int("chunk_size", defaultChunkSize),
				cfg.Int("overlap", defaultOverlap),
			)
		},
		Schema: plugin.Schema{
			{Key: "chunk_size", Kind: plugin.KindInt, Default: defaultChunkSize, Description: "window size in runes"},
			{Key: "overlap", Kind: plugin.KindInt, Default: defaultOverlap, Description: "runes shared between consecutive windows"},
		},
	}
}
