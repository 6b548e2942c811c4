package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

type vectorEntry struct {
	chunkId core.ID
	docId   core.ID
	text    string
	vector  []float32
}

// VectorStore is an in-memory plugin.VectorStore using brute-force
// cosine similarity (dot product over normalized vectors).
type VectorStore struct {
	mu      sync.RWMutex
	entries map[core.ID]vectorEntry
}

var _ plugin.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates an empty in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{entries: make(map[core.ID]vectorEntry)}
}

// AddEmbeddings upserts the chunks' embeddings keyed by chunk id.
// Chunks without an embedding are skipped.
func (s *VectorStore) AddEmbeddings(ctx context.Context, chunks []*core.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		s.entries[chunk.Id] = vectorEntry{
			chunkId: chunk.Id,
			docId:   chunk.DocId,
			text:    chunk.Text,
			vector:  slices.Clone(chunk.Embedding),
		}
	}
	return nil
}

func (s *VectorStore) Search(ctx context.Context, vector []float32, limit int, filter plugin.Query) ([]core.ChunkMatch, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: search limit must be positive, got %d", plugin.ErrStorage, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []core.ChunkMatch
	for _, entry := range s.entries {
		if docId, ok := filter["doc_id"]; ok && fmt.Sprint(docId) != string(entry.docId) {
			continue
		}
		matches = append(matches, core.ChunkMatch{
			ChunkId: entry.chunkId,
			DocId:   entry.docId,
			Text:    entry.text,
			Score:   dotProduct(vector, entry.vector),
		})
	}

	slices.SortFunc(matches, func(a, b core.ChunkMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *VectorStore) Delete(ctx context.Context, ids []core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

func (s *VectorStore) DeleteByDocId(ctx context.Context, docId core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.entries {
		if entry.docId == docId {
			delete(s.entries, id)
		}
	}
	return nil
}

func (s *VectorStore) Close() error {
	return nil
}

// Count returns the number of stored embeddings. Test helper.
func (s *VectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
