package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"
)

type badgerEngine struct {
	db *badger.DB
}

// OpenBadger opens a badger-backed engine rooted at dirname. If inMemory is true
// dirname is ignored and nothing is written to disk.
func OpenBadger(dirname string, inMemory bool) (Engine, error) {
	opts := badger.DefaultOptions(dirname).WithLogger(nil)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "[storage] - open badger at %q", dirname)
	}
	return &badgerEngine{db: db}, nil
}

func (b *badgerEngine) Get(key []byte) (value []byte, err error) {
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (b *badgerEngine) Set(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error { return txn.Set(key, value) })
}

func (b *badgerEngine) Close() error { return b.db.Close() }
