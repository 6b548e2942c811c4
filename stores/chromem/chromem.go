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


// Package chromem implements the vector store contract on chromem-go,
// an embedded vector database with optional on-disk persistence.
// Embeddings are always computed upstream; the store never calls an
// embedding backend itself.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

const collectionName = "chunks"

// VectorStore implements plugin.VectorStore on a chromem-go database.
type VectorStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *slog.Logger
}

var _ plugin.VectorStore = (*VectorStore)(nil)

// noEmbedding rejects any attempt to have chromem compute embeddings;
// every chunk arrives with its vector already attached.
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embeddings are computed upstream")
}

// Open creates a persistent vector store at path. An empty path opens
// an in-memory database.
func Open(path string, compress bool) (*VectorStore, error) {
	var db *chromem.DB
	var err error

	if path == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("%w: creating directory %s: %w", plugin.ErrStorage, path, err)
		}
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("%w: opening vector database: %w", plugin.ErrStorage, err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("%w: creating collection: %w", plugin.ErrStorage, err)
	}

	return &VectorStore{
		db:         db,
		collection: collection,
		logger:     slog.Default().With("component", "chromem-store"),
	}, nil
}

func (s *VectorStore) AddEmbeddings(ctx context.Context, chunks []*core.Chunk) error {
	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:      string(chunk.Id),
			Content: chunk.Text,
			Metadata: map[string]string{
				"doc_id":      string(chunk.DocId),
				"order_index": fmt.Sprintf("%d", chunk.OrderIndex),
			},
			Embedding: chunk.Embedding,
		})
	}
	if len(docs) == 0 {
		return nil
	}

	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("%w: adding embeddings: %w", plugin.ErrStorage, err)
	}

	s.logger.Debug("added embeddings", "count", len(docs))
	return nil
}

func (s *VectorStore) Search(ctx context.Context, vector []float32, limit int, filter plugin.Query) ([]core.ChunkMatch, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", plugin.ErrStorage, limit)
	}

	// chromem requires nResults <= document count.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, limit, whereFrom(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: querying embeddings: %w", plugin.ErrStorage, err)
	}

	matches := make([]core.ChunkMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, core.ChunkMatch{
			ChunkId: core.ID(r.ID),
			DocId:   core.ID(r.Metadata["doc_id"]),
			Text:    r.Content,
			Score:   r.Similarity,
		})
	}
	return matches, nil
}

func (s *VectorStore) Delete(ctx context.Context, ids []core.ID) error {
	if len(ids) == 0 {
		return nil
	}
	strIds := make([]string, len(ids))
	for i, id := range ids {
		strIds[i] = string(id)
	}
	if err := s.collection.Delete(ctx, nil, nil, strIds...); err != nil {
		return fmt.Errorf("%w: deleting embeddings: %w", plugin.ErrStorage, err)
	}
	return nil
}

func (s *VectorStore) DeleteByDocId(ctx context.Context, docId core.ID) error {
	if s.collection.Count() == 0 {
		return nil
	}
	where := map[string]string{"doc_id": string(docId)}
	if err := s.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("%w: deleting embeddings for %s: %w", plugin.ErrStorage, docId, err)
	}
	return nil
}

// Close is a no-op; chromem persists writes as they happen.
func (s *VectorStore) Close() error {
	return nil
}

// Count returns the number of stored embeddings.
func (s *VectorStore) Count() int {
	return s.collection.Count()
}

func whereFrom(filter plugin.Query) map[string]string {
	if len(filter) == 0 {
		return nil
	}
	where := make(map[string]string, len(filter))
	for key, value := range filter {
		where[key] = fmt.Sprint(value)
	}
	return where
}

// Descriptor advertises the store under the name "chromem".
func Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:  "chromem",
		Group: plugin.GroupVectorStores,
		Factory: func(cfg plugin.Config) (any, error) {
			return Open(
				cfg.String("path", "docit-vectors"),
				cfg.Bool("compress", false),
			)
		},
		Schema: plugin.Schema{
			{Key: "path", Kind: plugin.KindString, Default: "docit-vectors", Description: "database directory, empty for in-memory"},
			{Key: "compress", Kind: plugin.KindBool, Default: false, Description: "gzip stored documents"},
		},
	}
}
