package key

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

const (
	// MaxNamespaceLength is the longest namespace name a node accepts.
	MaxNamespaceLength = 31
	// MaxSetLength is the longest set name a node accepts.
	MaxSetLength = 63
)

var ErrInvalid = errors.New("invalid key")

// Key identifies a record in the cluster. Two keys are equal if their
// namespace, set and digest match; the user value is informational once the
// digest has been computed.
type Key struct {
	Namespace string
	Set       string
	Value     Value
	Digest    Digest
}

// ID is the comparable identity of a key.
type ID struct {
	Namespace string
	Set       string
	Digest    Digest
}

// New builds a key from a namespace, set and user value, computing its digest.
func New(namespace, set string, v interface{}) (Key, error) {
	if err := validateNames(namespace, set); err != nil {
		return Key{}, err
	}
	val, err := ValueOf(v)
	if err != nil {
		return Key{}, errors.Mark(err, ErrInvalid)
	}
	if val.IsNone() {
		return Key{}, errors.Wrap(ErrInvalid, "key value required")
	}
	return Key{
		Namespace: namespace,
		Set:       set,
		Value:     val,
		Digest:    ComputeDigest(namespace, set, val),
	}, nil
}

// FromDigest builds a key that addresses a record by digest alone. Its Value is
// NoValue.
func FromDigest(namespace, set string, d Digest) (Key, error) {
	if err := validateNames(namespace, set); err != nil {
		return Key{}, err
	}
	return Key{Namespace: namespace, Set: set, Digest: d}, nil
}

func validateNames(namespace, set string) error {
	if namespace == "" {
		return errors.Wrap(ErrInvalid, "namespace required")
	}
	if len(namespace) > MaxNamespaceLength {
		return errors.Wrapf(ErrInvalid, "namespace %q exceeds %d bytes", namespace, MaxNamespaceLength)
	}
	if len(set) > MaxSetLength {
		return errors.Wrapf(ErrInvalid, "set %q exceeds %d bytes", set, MaxSetLength)
	}
	return nil
}

func (k Key) ID() ID { return ID{Namespace: k.Namespace, Set: k.Set, Digest: k.Digest} }

func (k Key) Equal(o Key) bool { return k.ID() == o.ID() }

// WithoutValue returns a copy of the key with its user value stripped.
func (k Key) WithoutValue() Key {
	k.Value = NoValue
	return k
}

func (k Key) String() string {
	if k.Value.IsNone() {
		return fmt.Sprintf("(%s, %s, digest=%s)", k.Namespace, k.Set, k.Digest)
	}
	return fmt.Sprintf("(%s, %s, %s)", k.Namespace, k.Set, k.Value)
}
