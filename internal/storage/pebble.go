package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

type pebbleEngine struct {
	db *pebble.DB
}

// OpenPebble opens a pebble-backed engine rooted at dirname. If inMemory is true
// nothing is written to disk.
func OpenPebble(dirname string, inMemory bool) (Engine, error) {
	opts := &pebble.Options{}
	if inMemory {
		opts.FS = vfs.NewMem()
		if dirname == "" {
			dirname = "mem"
		}
	}
	db, err := pebble.Open(dirname, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "[storage] - open pebble at %q", dirname)
	}
	return &pebbleEngine{db: db}, nil
}

func (p *pebbleEngine) Get(key []byte) ([]byte, error) {
	v, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()
	return append([]byte{}, v...), nil
}

func (p *pebbleEngine) Set(key, value []byte) error { return p.db.Set(key, value, pebble.Sync) }

func (p *pebbleEngine) Close() error { return p.db.Close() }
