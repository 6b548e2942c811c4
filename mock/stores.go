package mock

import (
	"context"

	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

// MockDocumentStore is a test double for plugin.DocumentStore. An
// operation with a nil function field delegates to Inner when set,
// otherwise falls back to a no-op (saves succeed, reads miss). This
// makes it easy to wrap a real store and inject one failing operation.
type MockDocumentStore struct {
	Inner plugin.DocumentStore

	SaveFunc   func(ctx context.Context, doc *core.Document) error
	GetFunc    func(ctx context.Context, id core.ID) (*core.Document, error)
	DeleteFunc func(ctx context.Context, id core.ID) error
	FindFunc   func(ctx context.Context, q plugin.Query) ([]*core.Document, error)
}

var _ plugin.DocumentStore = (*MockDocumentStore)(nil)

func (m *MockDocumentStore) Save(ctx context.Context, doc *core.Document) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, doc)
	}
	if m.Inner != nil {
		return m.Inner.Save(ctx, doc)
	}
	return nil
}

func (m *MockDocumentStore) SaveBatch(ctx context.Context, docs []*core.Document) error {
	return plugin.SaveDocumentsEach(ctx, docs, m.Save)
}

func (m *MockDocumentStore) Get(ctx context.Context, id core.ID) (*core.Document, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	if m.Inner != nil {
		return m.Inner.Get(ctx, id)
	}
	return nil, plugin.ErrRecordNotFound
}

func (m *MockDocumentStore) GetBatch(ctx context.Context, ids []core.ID) ([]*core.Document, error) {
	var docs []*core.Document
	for _, id := range ids {
		doc, err := m.Get(ctx, id)
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *MockDocumentStore) Delete(ctx context.Context, id core.ID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	if m.Inner != nil {
		return m.Inner.Delete(ctx, id)
	}
	return nil
}

func (m *MockDocumentStore) DeleteBatch(ctx context.Context, ids []core.ID) error {
	return plugin.DeleteEach(ctx, ids, m.Delete)
}

func (m *MockDocumentStore) Find(ctx context.Context, q plugin.Query) ([]*core.Document, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, q)
	}
	if m.Inner != nil {
		return m.Inner.Find(ctx, q)
	}
	return nil, plugin.NotImplemented("mock", "find")
}

func (m *MockDocumentStore) Close() error {
	if m.Inner != nil {
		return m.Inner.Close()
	}
	return nil
}

// MockVectorStore is a test double for plugin.VectorStore.
type MockVectorStore struct {
	Inner plugin.VectorStore

	AddEmbeddingsFunc func(ctx context.Context, chunks []*core.Chunk) error
	SearchFunc        func(ctx context.Context, vector []float32, limit int, filter plugin.Query) ([]core.ChunkMatch, error)
	DeleteByDocIdFunc func(ctx context.Context, docId core.ID) error
}

var _ plugin.VectorStore = (*MockVectorStore)(nil)

func (m *MockVectorStore) AddEmbeddings(ctx context.Context, chunks []*core.Chunk) error {
	if m.AddEmbeddingsFunc != nil {
		return m.AddEmbeddingsFunc(ctx, chunks)
	}
	if m.Inner != nil {
		return m.Inner.AddEmbeddings(ctx, chunks)
	}
	return nil
}

func (m *MockVectorStore) Search(ctx context.Context, vector []float32, limit int, filter plugin.Query) ([]core.ChunkMatch, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, vector, limit, filter)
	}
	if m.Inner != nil {
		return m.Inner.Search(ctx, vector, limit, filter)
	}
	return nil, nil
}

func (m *MockVectorStore) Delete(ctx context.Context, ids []core.ID) error {
	if m.Inner != nil {
		return m.Inner.Delete(ctx, ids)
	}
	return nil
}

func (m *MockVectorStore) DeleteByDocId(ctx context.Context, docId core.ID) error {
	if m.DeleteByDocIdFunc != nil {
		return m.DeleteByDocIdFunc(ctx, docId)
	}
	if m.Inner != nil {
		return m.Inner.DeleteByDocId(ctx, docId)
	}
	return nil
}

func (m *MockVectorStore) Close() error {
	if m.Inner != nil {
		return m.Inner.Close()
	}
	return nil
}

// MockStructuredStore is a test double for plugin.StructuredStore.
type MockStructuredStore struct {
	Inner plugin.StructuredStore

	SaveFunc func(ctx context.Context, collection string, rec plugin.Record) error
	GetFunc  func(ctx context.Context, collection string, id core.ID) (plugin.Record, error)
	FindFunc func(ctx context.Context, collection string, q plugin.Query) ([]plugin.Record, error)
}

var _ plugin.StructuredStore = (*MockStructuredStore)(nil)

func (m *MockStructuredStore) Save(ctx context.Context, collection string, rec plugin.Record) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, collection, rec)
	}
	if m.Inner != nil {
		return m.Inner.Save(ctx, collection, rec)
	}
	return nil
}

func (m *MockStructuredStore) SaveBatch(ctx context.Context, collection string, recs []plugin.Record) error {
	return plugin.SaveRecordsEach(ctx, recs, func(ctx context.Context, rec plugin.Record) error {
		return m.Save(ctx, collection, rec)
	})
}

func (m *MockStructuredStore) Get(ctx context.Context, collection string, id core.ID) (plugin.Record, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, collection, id)
	}
	if m.Inner != nil {
		return m.Inner.Get(ctx, collection, id)
	}
	return plugin.Record{}, plugin.ErrRecordNotFound
}

func (m *MockStructuredStore) Delete(ctx context.Context, collection string, id core.ID) error {
	if m.Inner != nil {
		return m.Inner.Delete(ctx, collection, id)
	}
	return nil
}

func (m *MockStructuredStore) DeleteBatch(ctx context.Context, collection string, ids []core.ID) error {
	return plugin.DeleteEach(ctx, ids, func(ctx context.Context, id core.ID) error {
		return m.Delete(ctx, collection, id)
	})
}

func (m *MockStructuredStore) Find(ctx context.Context, collection string, q plugin.Query) ([]plugin.Record, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, collection, q)
	}
	if m.Inner != nil {
		return m.Inner.Find(ctx, collection, q)
	}
	return nil, plugin.NotImplemented("mock", "find")
}

func (m *MockStructuredStore) Close() error {
	if m.Inner != nil {
		return m.Inner.Close()
	}
	return nil
}
