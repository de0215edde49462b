package record

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Codec converts record bins and metadata to and from the payload a node sends
// for a found record.
type Codec interface {
	Encode(bins Bins, md Metadata) ([]byte, error)
	Decode(payload []byte) (Bins, Metadata, error)
}

var (
	ErrUnsupportedBin = errors.New("unsupported bin value")
	ErrMalformed      = errors.New("malformed record payload")
)

// WireCodec encodes records in protobuf wire format:
//
//	message Record { uint32 generation = 1; uint32 ttl = 2; repeated Bin bins = 3; }
//	message Bin { string name = 1; Value value = 2; }
//	message Value {
//	  oneof v { bool nil = 1; bool bool = 2; sint64 int = 3; double float = 4;
//	            string str = 5; bytes blob = 6; List list = 7; Map map = 8; }
//	}
//	message List { repeated Value values = 1; }
//	message Map { repeated Entry entries = 1; }
//	message Entry { string key = 1; Value value = 2; }
//
// Bins and map entries are written in name order so equal records encode to
// equal payloads.
type WireCodec struct{}

var _ Codec = WireCodec{}

const (
	recordGeneration protowire.Number = 1
	recordTTL        protowire.Number = 2
	recordBin        protowire.Number = 3

	binName  protowire.Number = 1
	binValue protowire.Number = 2

	valueNil   protowire.Number = 1
	valueBool  protowire.Number = 2
	valueInt   protowire.Number = 3
	valueFloat protowire.Number = 4
	valueStr   protowire.Number = 5
	valueBlob  protowire.Number = 6
	valueList  protowire.Number = 7
	valueMap   protowire.Number = 8

	listValues protowire.Number = 1
	mapEntries protowire.Number = 1
	entryKey   protowire.Number = 1
	entryValue protowire.Number = 2
)

var valueTypes = map[protowire.Number]protowire.Type{
	valueNil:   protowire.VarintType,
	valueBool:  protowire.VarintType,
	valueInt:   protowire.VarintType,
	valueFloat: protowire.Fixed64Type,
	valueStr:   protowire.BytesType,
	valueBlob:  protowire.BytesType,
	valueList:  protowire.BytesType,
	valueMap:   protowire.BytesType,
}

func (WireCodec) Encode(bins Bins, md Metadata) ([]byte, error) {
	var b []byte
	if md.Generation != 0 {
		b = protowire.AppendTag(b, recordGeneration, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(md.Generation))
	}
	if md.TTL != 0 {
		b = protowire.AppendTag(b, recordTTL, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(md.TTL))
	}
	for _, name := range sortedKeys(map[string]interface{}(bins)) {
		v, err := appendValue(nil, bins[name])
		if err != nil {
			return nil, errors.Wrapf(err, "bin %q", name)
		}
		var bin []byte
		bin = protowire.AppendTag(bin, binName, protowire.BytesType)
		bin = protowire.AppendString(bin, name)
		bin = protowire.AppendTag(bin, binValue, protowire.BytesType)
		bin = protowire.AppendBytes(bin, v)
		b = protowire.AppendTag(b, recordBin, protowire.BytesType)
		b = protowire.AppendBytes(b, bin)
	}
	return b, nil
}

func (WireCodec) Decode(payload []byte) (Bins, Metadata, error) {
	var (
		bins = make(Bins)
		md   Metadata
	)
	err := consumeFields(payload, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == recordGeneration && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			md.Generation = uint32(v)
			return n, nil
		case num == recordTTL && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			md.TTL = uint32(v)
			return n, nil
		case num == recordBin && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			name, v, err := decodeBin(raw)
			if err != nil {
				return 0, err
			}
			bins[name] = v
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return bins, md, err
}

func decodeBin(b []byte) (name string, v interface{}, err error) {
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == binName && typ == protowire.BytesType:
			var n int
			name, n = protowire.ConsumeString(b)
			return n, nil
		case num == binValue && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			var dErr error
			v, dErr = decodeValue(raw)
			return n, dErr
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err == nil && name == "" {
		err = errors.Wrap(ErrMalformed, "bin without a name")
	}
	return name, v, err
}

func appendValue(b []byte, v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		b = protowire.AppendTag(b, valueNil, protowire.VarintType)
		return protowire.AppendVarint(b, 1), nil
	case bool:
		b = protowire.AppendTag(b, valueBool, protowire.VarintType)
		return protowire.AppendVarint(b, protowire.EncodeBool(t)), nil
	case int:
		return appendInt(b, int64(t)), nil
	case int8:
		return appendInt(b, int64(t)), nil
	case int16:
		return appendInt(b, int64(t)), nil
	case int32:
		return appendInt(b, int64(t)), nil
	case int64:
		return appendInt(b, t), nil
	case uint8:
		return appendInt(b, int64(t)), nil
	case uint16:
		return appendInt(b, int64(t)), nil
	case uint32:
		return appendInt(b, int64(t)), nil
	case uint:
		return appendUint(b, uint64(t))
	case uint64:
		return appendUint(b, t)
	case float32:
		return appendFloat(b, float64(t)), nil
	case float64:
		return appendFloat(b, t), nil
	case string:
		b = protowire.AppendTag(b, valueStr, protowire.BytesType)
		return protowire.AppendString(b, t), nil
	case []byte:
		b = protowire.AppendTag(b, valueBlob, protowire.BytesType)
		return protowire.AppendBytes(b, t), nil
	case []interface{}:
		var list []byte
		for _, item := range t {
			iv, err := appendValue(nil, item)
			if err != nil {
				return nil, err
			}
			list = protowire.AppendTag(list, listValues, protowire.BytesType)
			list = protowire.AppendBytes(list, iv)
		}
		b = protowire.AppendTag(b, valueList, protowire.BytesType)
		return protowire.AppendBytes(b, list), nil
	case map[string]interface{}:
		var m []byte
		for _, k := range sortedKeys(t) {
			iv, err := appendValue(nil, t[k])
			if err != nil {
				return nil, err
			}
			var entry []byte
			entry = protowire.AppendTag(entry, entryKey, protowire.BytesType)
			entry = protowire.AppendString(entry, k)
			entry = protowire.AppendTag(entry, entryValue, protowire.BytesType)
			entry = protowire.AppendBytes(entry, iv)
			m = protowire.AppendTag(m, mapEntries, protowire.BytesType)
			m = protowire.AppendBytes(m, entry)
		}
		b = protowire.AppendTag(b, valueMap, protowire.BytesType)
		return protowire.AppendBytes(b, m), nil
	case Bins:
		return appendValue(b, map[string]interface{}(t))
	}
	return nil, errors.Wrapf(ErrUnsupportedBin, "%T", v)
}

func appendInt(b []byte, v int64) []byte {
	b = protowire.AppendTag(b, valueInt, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

func appendUint(b []byte, v uint64) ([]byte, error) {
	if v > math.MaxInt64 {
		return nil, errors.Wrapf(ErrUnsupportedBin, "integer %d overflows int64", v)
	}
	return appendInt(b, int64(v)), nil
}

func appendFloat(b []byte, v float64) []byte {
	b = protowire.AppendTag(b, valueFloat, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func decodeValue(b []byte) (v interface{}, err error) {
	set := false
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if want, ok := valueTypes[num]; ok && typ != want {
			return 0, errors.Wrapf(ErrMalformed, "value field %d has wire type %d", num, typ)
		}
		set = true
		switch num {
		case valueNil:
			_, n := protowire.ConsumeVarint(b)
			v = nil
			return n, nil
		case valueBool:
			x, n := protowire.ConsumeVarint(b)
			v = protowire.DecodeBool(x)
			return n, nil
		case valueInt:
			x, n := protowire.ConsumeVarint(b)
			v = protowire.DecodeZigZag(x)
			return n, nil
		case valueFloat:
			x, n := protowire.ConsumeFixed64(b)
			v = math.Float64frombits(x)
			return n, nil
		case valueStr:
			s, n := protowire.ConsumeString(b)
			v = s
			return n, nil
		case valueBlob:
			raw, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				v = append([]byte{}, raw...)
			}
			return n, nil
		case valueList:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			list, lErr := decodeList(raw)
			v = list
			return n, lErr
		case valueMap:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			m, mErr := decodeMap(raw)
			v = m
			return n, mErr
		}
		set = false
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err == nil && !set {
		err = errors.Wrap(ErrMalformed, "empty bin value")
	}
	return v, err
}

func decodeList(b []byte) ([]interface{}, error) {
	list := make([]interface{}, 0)
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != listValues || typ != protowire.BytesType {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		v, err := decodeValue(raw)
		list = append(list, v)
		return n, err
	})
	return list, err
}

func decodeMap(b []byte) (map[string]interface{}, error) {
	m := make(map[string]interface{})
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != mapEntries || typ != protowire.BytesType {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		var (
			k string
			v interface{}
		)
		err := consumeFields(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch {
			case num == entryKey && typ == protowire.BytesType:
				var n int
				k, n = protowire.ConsumeString(b)
				return n, nil
			case num == entryValue && typ == protowire.BytesType:
				raw, n := protowire.ConsumeBytes(b)
				if n < 0 {
					return n, nil
				}
				var err error
				v, err = decodeValue(raw)
				return n, err
			}
			return protowire.ConsumeFieldValue(num, typ, b), nil
		})
		m[k] = v
		return n, err
	})
	return m, err
}

// consumeFields walks the fields of a protobuf message, handing each field's
// value bytes to fn. fn returns the number of bytes it consumed, or a negative
// protowire length on a parse failure.
func consumeFields(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Mark(protowire.ParseError(n), ErrMalformed)
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return errors.Mark(protowire.ParseError(m), ErrMalformed)
		}
		b = b[m:]
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
