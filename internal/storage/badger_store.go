// internal/storage/badger_store.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"revhash/internal/errors"
)

// Entity represents any storable entity with an ID
type Entity interface {
	GetID() string
}

// BadgerStore stores JSON entities under "<prefix>:<id>" keys.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	return &BadgerStore{
		db:     db,
		prefix: prefix,
	}
}

// Open opens (creating if needed) a database directory.
func Open(path string) (*badger.DB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}

// OpenInMemory opens a throwaway database, for tests.
func OpenInMemory() (*badger.DB, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	return badger.Open(opts)
}

func (s *BadgerStore) makeKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", s.prefix, id))
}

func (s *BadgerStore) Create(entity Entity) error {
	if entity.GetID() == "" {
		return errors.ValidationError("entity ID cannot be empty", nil)
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshaling entity: %w", err)
	}

	key := s.makeKey(entity.GetID())
	return s.db.Update(func(txn *badger.Txn) error {
		// Check if key already exists
		_, err := txn.Get(key)
		if err == nil {
			return errors.ValidationError("entity already exists", entity.GetID())
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		return txn.Set(key, data)
	})
}

func (s *BadgerStore) Get(id string, entity Entity) error {
	key := s.makeKey(id)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, entity)
		})
	})

	if err == badger.ErrKeyNotFound {
		return errors.NotFound(fmt.Sprintf("entity not found: %s", id))
	}
	return err
}

func (s *BadgerStore) Delete(id string) error {
	key := s.makeKey(id)

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return errors.NotFound(fmt.Sprintf("entity not found: %s", id))
		} else if err != nil {
			return err
		}

		return txn.Delete(key)
	})
}

// Each calls fn with the raw JSON of every entity under the prefix, in
// key order. Returning an error from fn stops the scan.
func (s *BadgerStore) Each(fn func(id string, val []byte) error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(s.prefix + ":")
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				return fn(id, val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("listing entities: %w", err)
	}
	return nil
}
