package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docit/core"
	"github.com/poiesic/docit/plugin"
)

// StructuredStore implements plugin.StructuredStore on a shared
// Backend. Records are stored as JSON values under collection-prefixed
// keys.
type StructuredStore struct {
	backend *Backend
}

var _ plugin.StructuredStore = (*StructuredStore)(nil)

// NewStructuredStore creates a structured store over the backend.
func NewStructuredStore(backend *Backend) *StructuredStore {
	return &StructuredStore{backend: backend}
}

func (s *StructuredStore) Save(ctx context.Context, collection string, rec plugin.Record) error {
	if collection == "" {
		return fmt.Errorf("%w: collection is required", plugin.ErrStorage)
	}
	if rec.Id == "" {
		return fmt.Errorf("%w: record id is required", plugin.ErrStorage)
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record %s: %w", rec.Id, err)
		}
		if err := tx.Set(makeRecordKey(collection, rec.Id), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (s *StructuredStore) SaveBatch(ctx context.Context, collection string, recs []plugin.Record) error {
	return plugin.SaveRecordsEach(ctx, recs, func(ctx context.Context, rec plugin.Record) error {
		return s.Save(ctx, collection, rec)
	})
}

func (s *StructuredStore) Get(ctx context.Context, collection string, id core.ID) (plugin.Record, error) {
	var rec plugin.Record
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRecordKey(collection, id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: record %s in %s", plugin.ErrRecordNotFound, id, collection)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	}, false)
	if err != nil {
		return plugin.Record{}, err
	}
	return rec, nil
}

func (s *StructuredStore) Delete(ctx context.Context, collection string, id core.ID) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(collection, id)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: record %s in %s", plugin.ErrRecordNotFound, id, collection)
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (s *StructuredStore) DeleteBatch(ctx context.Context, collection string, ids []core.ID) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeRecordKey(collection, id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Find is not supported: records are keyed by (collection, id) only
// and carry no secondary indexes.
func (s *StructuredStore) Find(ctx context.Context, collection string, q plugin.Query) ([]plugin.Record, error) {
	return nil, plugin.NotImplemented("badger", "find")
}

// Close closes the shared backend. Safe to call from both stores;
// closing an already closed backend is a no-op.
func (s *StructuredStore) Close() error {
	return s.backend.Close()
}

// List returns every record of a collection in key order.
func (s *StructuredStore) List(ctx context.Context, collection string) ([]plugin.Record, error) {
	var recs []plugin.Record
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var rec plugin.Record
			err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return recs, nil
}
