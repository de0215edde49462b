package batch

import (
	"reflect"

	"github.com/arya-analytics/grove/internal/key"
	"github.com/cockroachdb/errors"
)

// ValidateKeys converts a caller supplied key collection into canonical keys,
// preserving input order. keys must be a slice or array whose elements are
// key.Key, *key.Key, or (namespace, set, value[, digest]) tuples given as
// slices or arrays.
func ValidateKeys(keys interface{}) ([]key.Key, error) {
	rv := reflect.ValueOf(keys)
	if !isList(rv) {
		return nil, invalidParameter("keys should be specified as a list or tuple")
	}
	if rv.Len() == 0 {
		return nil, invalidParameter("at least one key required")
	}
	out := make([]key.Key, rv.Len())
	for i := range out {
		k, err := canonicalKey(rv.Index(i))
		if err != nil {
			if errors.Is(err, ErrInvalidParameter) {
				return nil, errors.Wrapf(err, "key %d", i)
			}
			return nil, errors.Mark(errors.Wrapf(err, "key %d", i), ErrInvalidParameter)
		}
		out[i] = k
	}
	return out, nil
}

func isList(rv reflect.Value) bool {
	return rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array)
}

func canonicalKey(rv reflect.Value) (key.Key, error) {
	if rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return key.Key{}, invalidParameter("key should be a tuple")
	}
	switch k := rv.Interface().(type) {
	case key.Key:
		return checkKey(k)
	case *key.Key:
		if k == nil {
			return key.Key{}, invalidParameter("key should be a tuple")
		}
		return checkKey(*k)
	}
	if !isList(rv) || (rv.Len() != 3 && rv.Len() != 4) {
		return key.Key{}, invalidParameter("key should be a tuple")
	}
	ns, ok := elem(rv, 0).(string)
	if !ok {
		return key.Key{}, invalidParameter("namespace should be a string")
	}
	var set string
	switch s := elem(rv, 1).(type) {
	case nil:
	case string:
		set = s
	default:
		return key.Key{}, invalidParameter("set should be a string or none")
	}
	v := elem(rv, 2)
	if v == nil || v == key.NoValue {
		if rv.Len() != 4 {
			return key.Key{}, invalidParameter("either key value or digest is required")
		}
		d, err := digestOf(elem(rv, 3))
		if err != nil {
			return key.Key{}, err
		}
		return key.FromDigest(ns, set, d)
	}
	return key.New(ns, set, v)
}

func checkKey(k key.Key) (key.Key, error) {
	if k.Value.IsNone() {
		return key.FromDigest(k.Namespace, k.Set, k.Digest)
	}
	return key.New(k.Namespace, k.Set, k.Value)
}

func elem(rv reflect.Value, i int) interface{} { return rv.Index(i).Interface() }

func digestOf(v interface{}) (key.Digest, error) {
	switch d := v.(type) {
	case key.Digest:
		return d, nil
	case []byte:
		digest, err := key.DigestFromBytes(d)
		if err != nil {
			return digest, errors.Mark(err, ErrInvalidParameter)
		}
		return digest, nil
	}
	return key.Digest{}, invalidParameterf("digest should be %d bytes", key.DigestSize)
}
