package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

// StructuredStore is an in-memory plugin.StructuredStore: named
// collections of id-keyed records.
type StructuredStore struct {
	mu          sync.RWMutex
	collections map[string]map[core.ID]plugin.Record
}

var _ plugin.StructuredStore = (*StructuredStore)(nil)

// NewStructuredStore creates an empty in-memory structured store.
func NewStructuredStore() *StructuredStore {
	return &StructuredStore{collections: make(map[string]map[core.ID]plugin.Record)}
}

func (s *StructuredStore) Save(ctx context.Context, collection string, rec plugin.Record) error {
	if rec.Id == "" {
		return fmt.Errorf("%w: record has no id", plugin.ErrStorage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collections[collection]
	if coll == nil {
		coll = make(map[core.ID]plugin.Record)
		s.collections[collection] = coll
	}
	coll[rec.Id] = rec
	return nil
}

func (s *StructuredStore) SaveBatch(ctx context.Context, collection string, recs []plugin.Record) error {
	return plugin.SaveRecordsEach(ctx, recs, func(ctx context.Context, rec plugin.Record) error {
		return s.Save(ctx, collection, rec)
	})
}

func (s *StructuredStore) Get(ctx context.Context, collection string, id core.ID) (plugin.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return plugin.Record{}, fmt.Errorf("%w: %s/%s", plugin.ErrRecordNotFound, collection, id)
	}
	return rec, nil
}

func (s *StructuredStore) Delete(ctx context.Context, collection string, id core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return fmt.Errorf("%w: %s/%s", plugin.ErrRecordNotFound, collection, id)
	}
	delete(s.collections[collection], id)
	return nil
}

func (s *StructuredStore) DeleteBatch(ctx context.Context, collection string, ids []core.ID) error {
	return plugin.DeleteEach(ctx, ids, func(ctx context.Context, id core.ID) error {
		return s.Delete(ctx, collection, id)
	})
}

// Find matches records by field equality over their Fields mapping
// (and "id" against the record id).
func (s *StructuredStore) Find(ctx context.Context, collection string, q plugin.Query) ([]plugin.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []plugin.Record
	for _, rec := range s.collections[collection] {
		if matchesRecord(rec, q) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *StructuredStore) Close() error {
	return nil
}

// Count returns the number of records in a collection. Test helper.
func (s *StructuredStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func matchesRecord(rec plugin.Record, q plugin.Query) bool {
	for key, want := range q {
		var got any
		if key == "id" {
			got = string(rec.Id)
		} else {
			got = rec.Fields[key]
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
