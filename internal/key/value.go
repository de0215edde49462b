package key

import (
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Kind discriminates the variants of a key Value.
type Kind uint8

const (
	// KindNone is the kind of a key whose user value is unknown, either because the
	// key was built from a digest or because a node did not return it.
	KindNone Kind = iota
	KindInt
	KindString
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is the user supplied portion of a key. Values are immutable and comparable.
type Value struct {
	kind Kind
	i    int64
	// s holds both string and byte values so that Value stays comparable.
	s string
}

// NoValue is the sentinel for a key whose user value is unavailable.
var NoValue = Value{}

var ErrUnsupportedValue = errors.New("unsupported key value type")

func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

func StringValue(v string) Value { return Value{kind: KindString, s: v} }

func BytesValue(v []byte) Value { return Value{kind: KindBytes, s: string(v)} }

// ValueOf converts a Go value into a key Value. Integers of every width, strings,
// byte slices and Values are accepted.
func ValueOf(v interface{}) (Value, error) {
	switch t := v.(type) {
	case Value:
		return t, nil
	case int:
		return IntValue(int64(t)), nil
	case int8:
		return IntValue(int64(t)), nil
	case int16:
		return IntValue(int64(t)), nil
	case int32:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case uint8:
		return IntValue(int64(t)), nil
	case uint16:
		return IntValue(int64(t)), nil
	case uint32:
		return IntValue(int64(t)), nil
	case uint:
		return uintValue(uint64(t))
	case uint64:
		return uintValue(t)
	case string:
		return StringValue(t), nil
	case []byte:
		return BytesValue(t), nil
	}
	return NoValue, errors.Wrapf(ErrUnsupportedValue, "%T", v)
}

func uintValue(v uint64) (Value, error) {
	if v > math.MaxInt64 {
		return NoValue, errors.Newf("key value %d overflows int64", v)
	}
	return IntValue(int64(v)), nil
}

func (v Value) Kind() Kind { return v.kind }

// IsNone returns true if the value is the NoValue sentinel.
func (v Value) IsNone() bool { return v.kind == KindNone }

func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return []byte(v.s), true
}

// Interface returns the value as a plain Go value: int64, string, []byte, or nil
// for NoValue.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInt:
		return v.i
	case KindString:
		return v.s
	case KindBytes:
		return []byte(v.s)
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return strconv.Quote(v.s)
	case KindBytes:
		return "0x" + hexString([]byte(v.s))
	default:
		return "<no key>"
	}
}
