package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

// DocumentStore is an in-memory plugin.DocumentStore. Documents are
// deep-copied on save and load so callers can keep mutating their copy
// without corrupting the stored one.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[core.ID]*core.Document
}

var _ plugin.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates an empty in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[core.ID]*core.Document)}
}

// Save upserts one document by id, maintaining the timestamps: the
// first save sets InsertedAt, every save refreshes UpdatedAt.
func (s *DocumentStore) Save(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return fmt.Errorf("%w: %w", plugin.ErrStorage, err)
	}

	copied, err := copyDocument(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", plugin.ErrStorage, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if prior, ok := s.docs[doc.Id]; ok {
		copied.InsertedAt = prior.InsertedAt
	} else {
		copied.InsertedAt = now
	}
	copied.UpdatedAt = now
	s.docs[doc.Id] = copied

	doc.InsertedAt = copied.InsertedAt
	doc.UpdatedAt = copied.UpdatedAt
	return nil
}

func (s *DocumentStore) SaveBatch(ctx context.Context, docs []*core.Document) error {
	return plugin.SaveDocumentsEach(ctx, docs, s.Save)
}

func (s *DocumentStore) Get(ctx context.Context, id core.ID) (*core.Document, error) {
	s.mu.RLock()
	doc, ok := s.docs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: document %s", plugin.ErrRecordNotFound, id)
	}
	return copyDocument(doc)
}

func (s *DocumentStore) GetBatch(ctx context.Context, ids []core.ID) ([]*core.Document, error) {
	var docs []*core.Document
	for _, id := range ids {
		doc, err := s.Get(ctx, id)
		if err != nil {
			continue // missing ids are skipped, not an error
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *DocumentStore) Delete(ctx context.Context, id core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("%w: document %s", plugin.ErrRecordNotFound, id)
	}
	delete(s.docs, id)
	return nil
}

func (s *DocumentStore) DeleteBatch(ctx context.Context, ids []core.ID) error {
	return plugin.DeleteEach(ctx, ids, s.Delete)
}

// Find matches documents by field equality. Recognized keys: "id",
// "name", "type", "source_fingerprint", and any metadata key.
func (s *DocumentStore) Find(ctx context.Context, q plugin.Query) ([]*core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.Document
	for _, doc := range s.docs {
		if matchesDocument(doc, q) {
			copied, err := copyDocument(doc)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", plugin.ErrStorage, err)
			}
			out = append(out, copied)
		}
	}
	return out, nil
}

func (s *DocumentStore) Close() error {
	return nil
}

func matchesDocument(doc *core.Document, q plugin.Query) bool {
	for key, want := range q {
		var got any
		switch key {
		case "id":
			got = string(doc.Id)
		case "name":
			got = doc.Name
		case "type":
			got = string(doc.Type)
		case "source_fingerprint":
			got = doc.Fingerprint
		default:
			got = doc.Metadata[key]
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// copyDocument deep-copies via JSON. Documents are JSON-serializable by
// construction; this is the same round-trip the persistent stores do.
func copyDocument(doc *core.Document) (*core.Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out core.Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
