package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic CRUD operations for any domain type.
//
// Secondary indexes map an index key to the entity id. An index whose
// keys are derived solely from entity fields (email, username) is
// unique: Create and Update fail with ErrAlreadyExists on conflict
// inside the same transaction, which is what makes concurrent
// duplicate writes safe. An index whose keys end in the entity's own
// id ("userID/entityID") can never conflict and serves prefix listing.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []index[T]
}

type index[T any] struct {
	name   string
	keyGen func(*T) []string
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{store: s, prefix: prefix}
}

// WithIndex adds a secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, index[T]{name: name, keyGen: keyGen})
	return e
}

func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) indexKey(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value)
}

// Create stores a new entity under the given ID.
// Returns ErrAlreadyExists on an ID or unique index conflict.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(e.key(id)); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check existing key: %w", err)
		}

		for _, idx := range e.indexes {
			for _, ik := range idx.keyGen(entity) {
				if _, err := txn.Get(e.indexKey(idx.name, ik)); err == nil {
					return fmt.Errorf("index %s conflict on %s: %w", idx.name, ik, ErrAlreadyExists)
				} else if !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("check index key: %w", err)
				}
			}
		}

		if err := txn.Set(e.key(id), data); err != nil {
			return fmt.Errorf("set key: %w", err)
		}
		for _, idx := range e.indexes {
			for _, ik := range idx.keyGen(entity) {
				if err := txn.Set(e.indexKey(idx.name, ik), []byte(id)); err != nil {
					return fmt.Errorf("set index key: %w", err)
				}
			}
		}
		return nil
	})
}

// Get retrieves an entity by ID. Returns ErrNotFound if absent.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity T
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get key: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entity)
		})
	})
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetByIndex retrieves a single entity through a unique index.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var id string
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.indexKey(indexName, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return e.Get(ctx, id)
}

// Update replaces an existing entity, moving its index entries.
// Returns ErrNotFound when absent, ErrAlreadyExists on index conflict.
func (e *Entity[T]) Update(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		var old T
		item, err := txn.Get(e.key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get existing key: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &old)
		}); err != nil {
			return err
		}

		for _, idx := range e.indexes {
			oldKeys := make(map[string]bool)
			for _, ik := range idx.keyGen(&old) {
				oldKeys[ik] = true
				if err := txn.Delete(e.indexKey(idx.name, ik)); err != nil {
					return fmt.Errorf("delete old index key: %w", err)
				}
			}
			for _, ik := range idx.keyGen(entity) {
				if oldKeys[ik] {
					continue
				}
				if _, err := txn.Get(e.indexKey(idx.name, ik)); err == nil {
					return fmt.Errorf("index %s conflict on %s: %w", idx.name, ik, ErrAlreadyExists)
				} else if !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("check index key: %w", err)
				}
			}
		}

		if err := txn.Set(e.key(id), data); err != nil {
			return fmt.Errorf("set key: %w", err)
		}
		for _, idx := range e.indexes {
			for _, ik := range idx.keyGen(entity) {
				if err := txn.Set(e.indexKey(idx.name, ik), []byte(id)); err != nil {
					return fmt.Errorf("set index key: %w", err)
				}
			}
		}
		return nil
	})
}

// Delete removes an entity and its index entries. Idempotent.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		var entity T
		item, err := txn.Get(e.key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get key: %w", err)
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entity)
		}); err != nil {
			return err
		}

		for _, idx := range e.indexes {
			for _, ik := range idx.keyGen(&entity) {
				if err := txn.Delete(e.indexKey(idx.name, ik)); err != nil {
					return fmt.Errorf("delete index key: %w", err)
				}
			}
		}
		return txn.Delete(e.key(id))
	})
}

// List returns an iterator over all entities of this type.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek([]byte(e.prefix)); it.ValidForPrefix([]byte(e.prefix)); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}

				// Index entries live under the same prefix
				if strings.HasPrefix(string(it.Item().Key())[len(e.prefix):], "idx:") {
					continue
				}

				var entity T
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				}); err != nil {
					yield(nil, err)
					return err
				}
				if !yield(&entity, nil) {
					return nil
				}
			}
			return nil
		})
	}
}

// ListByIndexPrefix loads every entity whose index key starts with the
// given prefix. Use with indexes keyed "ownerID/entityID" to list all
// entities of one owner.
func (e *Entity[T]) ListByIndexPrefix(ctx context.Context, indexName, keyPrefix string) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []string
	err := e.store.db.View(func(txn *badger.Txn) error {
		prefix := e.indexKey(indexName, keyPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		entity, err := e.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // index entry raced a delete
			}
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}
