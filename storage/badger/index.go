package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/jeffallen007/what-would-she-say/storage"
)

// Index implements storage.Index on top of a BadgerDB backend.
// Objects are stored under a per-collection key prefix and serialized with
// the storage MUS codec.
type Index struct {
	backend *Backend
	owned   bool
	logger  *slog.Logger
}

var (
	_ storage.Index    = (*Index)(nil)
	_ storage.Exporter = (*Index)(nil)
)

// NewIndex creates an index over an already opened backend.
// Closing the index leaves the backend open.
func NewIndex(backend *Backend) *Index {
	return &Index{
		backend: backend,
		logger:  slog.Default().With("component", "badger-index"),
	}
}

// NewConnector returns a connector that opens the database at path for each
// session. The session owns the database and closes it on Close.
func NewConnector(path string, inMemory bool) storage.Connector {
	return storage.ConnectorFunc(func(ctx context.Context) (storage.Index, error) {
		backend, err := OpenBackend(path, inMemory)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		idx := NewIndex(backend)
		idx.owned = true
		return idx, nil
	})
}

// Close closes the backend if this index opened it.
func (ix *Index) Close() error {
	if !ix.owned || ix.backend.IsClosed() {
		return nil
	}
	return ix.backend.Close()
}

// HasCollection reports whether a collection record exists.
func (ix *Index) HasCollection(ctx context.Context, name string) (bool, error) {
	if ix.backend.IsClosed() {
		return false, storage.ErrStorageClosed
	}
	_, err := ix.loadCollection(name)
	if errors.Is(err, storage.ErrCollectionNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CreateCollection stores the collection record.
func (ix *Index) CreateCollection(ctx context.Context, schema *storage.CollectionSchema) error {
	if ix.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := schema.Validate(); err != nil {
		return err
	}

	return ix.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCollectionKey(schema.Name)
		if _, err := tx.Get(key); err == nil {
			return fmt.Errorf("%w: %s", storage.ErrCollectionExists, schema.Name)
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		record := *schema
		record.CreatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalCollection(&record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteCollection removes the collection record and all its objects.
func (ix *Index) DeleteCollection(ctx context.Context, name string) error {
	if ix.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ix.backend.DropPrefix(makeObjectPrefix(name)); err != nil {
		return err
	}
	return ix.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCollectionKey(name)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Upsert writes all accepted objects in a single transaction.
// Objects that do not fit the collection schema are rejected individually.
// A failed commit fails the whole call.
func (ix *Index) Upsert(ctx context.Context, collection string, objects []*core.Object) ([]core.Outcome, error) {
	if ix.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	schema, err := ix.loadCollection(collection)
	if err != nil {
		return nil, err
	}

	outcomes := make([]core.Outcome, len(objects))
	now := time.Now().UTC()
	var replaced, unchanged int

	err = ix.backend.WithTx(func(tx *badger.Txn) error {
		for i, obj := range objects {
			if reason := schema.CheckObject(obj); reason != "" {
				outcomes[i] = core.Failed(reason)
				continue
			}

			key := makeObjectKey(collection, obj.ID)
			if prev, err := readObject(tx, key); err == nil {
				if prev.Checksum == obj.Checksum {
					unchanged++
				} else {
					replaced++
				}
			} else if err != badger.ErrKeyNotFound {
				outcomes[i] = core.Failed(err.Error())
				continue
			}

			if err := tx.Set(key, storage.MarshalObject(storage.NewStoredObject(obj, now))); err != nil {
				if errors.Is(err, badger.ErrTxnTooBig) {
					return err
				}
				outcomes[i] = core.Failed(err.Error())
				continue
			}
			outcomes[i] = core.Succeeded()
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, fmt.Errorf("upsert into %s: %w", collection, err)
	}

	ix.logger.Debug("upserted objects",
		"collection", collection,
		"count", len(objects),
		"replaced", replaced,
		"unchanged", unchanged)
	return outcomes, nil
}

// Count returns the number of objects in a collection.
func (ix *Index) Count(ctx context.Context, collection string) (int, error) {
	if ix.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}
	if _, err := ix.loadCollection(collection); err != nil {
		return 0, err
	}

	count := 0
	err := ix.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeObjectPrefix(collection)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Export calls fn for every stored object in the collection, in key order.
func (ix *Index) Export(ctx context.Context, collection string, fn func(*storage.StoredObject) error) error {
	if ix.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if _, err := ix.loadCollection(collection); err != nil {
		return err
	}

	return ix.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeObjectPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var obj *storage.StoredObject
			err := iter.Item().Value(func(val []byte) error {
				var err error
				obj, err = storage.UnmarshalObject(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(obj); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// loadCollection reads the collection record.
// Returns storage.ErrCollectionNotFound if it doesn't exist.
func (ix *Index) loadCollection(name string) (*storage.CollectionSchema, error) {
	var schema *storage.CollectionSchema
	err := ix.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCollectionKey(name))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			schema, unmarshalErr = storage.UnmarshalCollection(val)
			return unmarshalErr
		})
	}, false)
	return schema, err
}

func readObject(tx *badger.Txn, key []byte) (*storage.StoredObject, error) {
	item, err := tx.Get(key)
	if err != nil {
		return nil, err
	}
	var obj *storage.StoredObject
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		obj, unmarshalErr = storage.UnmarshalObject(val)
		return unmarshalErr
	})
	return obj, err
}
