// Package badgerkv implements the storage.KVStore and storage.Opener
// contracts on top of dgraph-io/badger, an embedded ordered key/value
// store. Keys are iterated in lexicographic byte order by badger's
// default iterator, which is exactly the order spec.md §9 requires for
// feeding storage leaves to the merkle builder.
package badgerkv

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/chainforge/chainstate/foundation/blockchain/storage"
)

// Store wraps a single badger.DB as a storage.KVStore.
type Store struct {
	db *badger.DB
}

// Open constructs or opens a badger database at the given directory. An
// empty path opens an in-memory instance, handy for tests.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Get implements storage.KVStore.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		return item.Value(func(v []byte) error {
			value = append([]byte{}, v...)
			return nil
		})
	})

	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return value, true, nil
}

// Put implements storage.KVStore.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Keys implements storage.KVStore, returning every key in lexicographic
// order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}

		return nil
	})

	return keys, err
}

// Close implements storage.KVStore.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================

// DirOpener opens one badger Store per path it is asked for. It implements
// storage.Opener and is the factory the engine uses for on-demand
// per-account storage (§4.5 step 6: open, write, close).
type DirOpener struct{}

// Open implements storage.Opener.
func (DirOpener) Open(ctx context.Context, path string) (storage.KVStore, error) {
	return Open(path)
}
