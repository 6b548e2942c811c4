package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

// DocumentStore implements plugin.DocumentStore on a shared Backend.
// Documents are stored as JSON values under their id.
type DocumentStore struct {
	backend *Backend
}

var _ plugin.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates a document store over the backend.
func NewDocumentStore(backend *Backend) *DocumentStore {
	return &DocumentStore{backend: backend}
}

func (s *DocumentStore) Save(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.Id)

		now := time.Now().UTC()
		old, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			doc.InsertedAt = old.InsertedAt
		} else {
			doc.InsertedAt = now
		}
		doc.UpdatedAt = now

		value, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling document %s: %w", doc.Id, err)
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (s *DocumentStore) SaveBatch(ctx context.Context, docs []*core.Document) error {
	return plugin.SaveDocumentsEach(ctx, docs, s.Save)
}

func (s *DocumentStore) Get(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, makeDocumentKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %s", plugin.ErrRecordNotFound, id)
	}
	return doc, nil
}

func (s *DocumentStore) GetBatch(ctx context.Context, ids []core.ID) ([]*core.Document, error) {
	docs := make([]*core.Document, 0, len(ids))
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if doc != nil {
				docs = append(docs, doc)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *DocumentStore) Delete(ctx context.Context, id core.ID) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: document %s", plugin.ErrRecordNotFound, id)
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (s *DocumentStore) DeleteBatch(ctx context.Context, ids []core.ID) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeDocumentKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Find is not supported: documents are keyed by id only and carry no
// secondary indexes.
func (s *DocumentStore) Find(ctx context.Context, q plugin.Query) ([]*core.Document, error) {
	return nil, plugin.NotImplemented("badger", "find")
}

// Close closes the shared backend. Safe to call from both stores;
// closing an already closed backend is a no-op.
func (s *DocumentStore) Close() error {
	return s.backend.Close()
}

// readDocument reads and unmarshals a document, returning nil when the
// key does not exist.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var doc core.Document
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshaling document: %w", err)
	}
	return &doc, nil
}
