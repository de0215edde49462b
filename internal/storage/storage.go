// Package storage provides the key-value engines a node keeps its records in.
package storage

import (
	"github.com/cockroachdb/errors"
)

var ErrNotFound = errors.New("key not found")

// Engine is a byte-oriented key-value store.
type Engine interface {
	// Get returns the value stored at key, or ErrNotFound. The returned slice is
	// owned by the caller.
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Close() error
}
