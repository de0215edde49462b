package batch

import (
	"reflect"
	"unicode/utf8"
)

// MaxBinNameLength is the longest bin name a node accepts, in bytes.
const MaxBinNameLength = 15

// BinFilter is the set of bins a batch read returns for each record. The zero
// value selects every bin.
type BinFilter struct {
	names []string
}

// All returns true if the filter selects every bin.
func (f BinFilter) All() bool { return len(f.names) == 0 }

// Names returns the selected bin names in the order they were first given.
func (f BinFilter) Names() []string {
	if f.All() {
		return nil
	}
	return append([]string(nil), f.names...)
}

// BuildBinFilter converts a caller supplied bin collection into a BinFilter.
// A nil or empty collection selects every bin. Elements must be strings or
// UTF-8 encoded byte slices. Duplicate names are dropped.
func BuildBinFilter(bins interface{}) (BinFilter, error) {
	if bins == nil {
		return BinFilter{}, nil
	}
	rv := reflect.ValueOf(bins)
	if !isList(rv) {
		return BinFilter{}, invalidParameter("filter bins should be specified as a list or tuple")
	}
	f := BinFilter{names: make([]string, 0, rv.Len())}
	seen := make(map[string]bool, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		name, err := binName(elem(rv, i))
		if err != nil {
			return BinFilter{}, err
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		f.names = append(f.names, name)
	}
	return f, nil
}

func binName(v interface{}) (string, error) {
	var name string
	switch t := v.(type) {
	case string:
		name = t
	case []byte:
		if !utf8.Valid(t) {
			return "", invalidParameter("bin name should be a string or unicode string")
		}
		name = string(t)
	default:
		return "", invalidParameter("bin name should be a string or unicode string")
	}
	if name == "" {
		return "", invalidParameter("bin name must not be empty")
	}
	if len(name) > MaxBinNameLength {
		return "", invalidParameterf("bin name %q exceeds %d bytes", name, MaxBinNameLength)
	}
	return name, nil
}
