package transport

import (
	"time"

	"github.com/arya-analytics/grove/internal/key"
	"github.com/arya-analytics/grove/internal/record"
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Messages are encoded in protobuf wire format:
//
//	message Value { oneof v { sint64 int = 1; string str = 2; bytes blob = 3; } }
//	message Key { string namespace = 1; string set = 2; bytes digest = 3; Value value = 4; }
//	message BatchRequest {
//	  string id = 1; repeated Key keys = 2; repeated string bins = 3;
//	  uint32 consistency = 4; uint64 timeout_ms = 5;
//	}
//	message RecordResult { Key key = 1; uint32 status = 2; bytes payload = 3; }

var ErrMalformed = errors.New("malformed message")

const (
	valueInt  protowire.Number = 1
	valueStr  protowire.Number = 2
	valueBlob protowire.Number = 3

	keyNamespace protowire.Number = 1
	keySet       protowire.Number = 2
	keyDigest    protowire.Number = 3
	keyValue     protowire.Number = 4

	reqID          protowire.Number = 1
	reqKeys        protowire.Number = 2
	reqBins        protowire.Number = 3
	reqConsistency protowire.Number = 4
	reqTimeout     protowire.Number = 5

	resKey     protowire.Number = 1
	resStatus  protowire.Number = 2
	resPayload protowire.Number = 3
)

// AppendValue appends the wire form of a key value to b. NoValue appends
// nothing.
func AppendValue(b []byte, v key.Value) []byte {
	switch v.Kind() {
	case key.KindInt:
		i, _ := v.Int()
		b = protowire.AppendTag(b, valueInt, protowire.VarintType)
		return protowire.AppendVarint(b, protowire.EncodeZigZag(i))
	case key.KindString:
		s, _ := v.Str()
		b = protowire.AppendTag(b, valueStr, protowire.BytesType)
		return protowire.AppendString(b, s)
	case key.KindBytes:
		blob, _ := v.Bytes()
		b = protowire.AppendTag(b, valueBlob, protowire.BytesType)
		return protowire.AppendBytes(b, blob)
	case key.KindNone:
	}
	return b
}

// ConsumeValue parses a key value written by AppendValue. An empty message is
// key.NoValue.
func ConsumeValue(b []byte) (v key.Value, err error) {
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == valueInt && typ == protowire.VarintType:
			x, n := protowire.ConsumeVarint(b)
			v = key.IntValue(protowire.DecodeZigZag(x))
			return n
		case num == valueStr && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			v = key.StringValue(s)
			return n
		case num == valueBlob && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			v = key.BytesValue(raw)
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	return v, err
}

func appendKey(b []byte, k key.Key) []byte {
	b = protowire.AppendTag(b, keyNamespace, protowire.BytesType)
	b = protowire.AppendString(b, k.Namespace)
	if k.Set != "" {
		b = protowire.AppendTag(b, keySet, protowire.BytesType)
		b = protowire.AppendString(b, k.Set)
	}
	b = protowire.AppendTag(b, keyDigest, protowire.BytesType)
	b = protowire.AppendBytes(b, k.Digest[:])
	if !k.Value.IsNone() {
		b = protowire.AppendTag(b, keyValue, protowire.BytesType)
		b = protowire.AppendBytes(b, AppendValue(nil, k.Value))
	}
	return b
}

func consumeKey(b []byte) (k key.Key, err error) {
	hasDigest := false
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if typ != protowire.BytesType {
			return protowire.ConsumeFieldValue(num, typ, b)
		}
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n
		}
		switch num {
		case keyNamespace:
			k.Namespace = string(raw)
		case keySet:
			k.Set = string(raw)
		case keyDigest:
			var dErr error
			if k.Digest, dErr = key.DigestFromBytes(raw); dErr != nil {
				err = dErr
			}
			hasDigest = true
		case keyValue:
			var vErr error
			if k.Value, vErr = ConsumeValue(raw); vErr != nil {
				err = vErr
			}
		}
		return n
	})
	if err == nil && !hasDigest {
		err = errors.Wrap(ErrMalformed, "key without digest")
	}
	return k, err
}

func MarshalRequest(req BatchRequest) []byte {
	var b []byte
	if req.ID != "" {
		b = protowire.AppendTag(b, reqID, protowire.BytesType)
		b = protowire.AppendString(b, req.ID)
	}
	for _, k := range req.Keys {
		b = protowire.AppendTag(b, reqKeys, protowire.BytesType)
		b = protowire.AppendBytes(b, appendKey(nil, k))
	}
	for _, bin := range req.Bins {
		b = protowire.AppendTag(b, reqBins, protowire.BytesType)
		b = protowire.AppendString(b, bin)
	}
	if req.Consistency != ConsistencyDefault {
		b = protowire.AppendTag(b, reqConsistency, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(req.Consistency))
	}
	if req.Timeout > 0 {
		b = protowire.AppendTag(b, reqTimeout, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(req.Timeout.Milliseconds()))
	}
	return b
}

func UnmarshalRequest(b []byte) (req BatchRequest, err error) {
	var keyErr error
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == reqID && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			req.ID = s
			return n
		case num == reqKeys && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			k, kErr := consumeKey(raw)
			if kErr != nil && keyErr == nil {
				keyErr = kErr
			}
			req.Keys = append(req.Keys, k)
			return n
		case num == reqBins && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			req.Bins = append(req.Bins, s)
			return n
		case num == reqConsistency && typ == protowire.VarintType:
			x, n := protowire.ConsumeVarint(b)
			req.Consistency = Consistency(x)
			return n
		case num == reqTimeout && typ == protowire.VarintType:
			x, n := protowire.ConsumeVarint(b)
			req.Timeout = time.Duration(x) * time.Millisecond
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err == nil {
		err = keyErr
	}
	return req, err
}

func MarshalResult(res RecordResult) []byte {
	var b []byte
	b = protowire.AppendTag(b, resKey, protowire.BytesType)
	b = protowire.AppendBytes(b, appendKey(nil, res.Key))
	if res.Status != record.StatusFound {
		b = protowire.AppendTag(b, resStatus, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(res.Status))
	}
	if len(res.Payload) > 0 {
		b = protowire.AppendTag(b, resPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, res.Payload)
	}
	return b
}

func UnmarshalResult(b []byte) (res RecordResult, err error) {
	var keyErr error
	hasKey := false
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == resKey && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}
			res.Key, keyErr = consumeKey(raw)
			hasKey = true
			return n
		case num == resStatus && typ == protowire.VarintType:
			x, n := protowire.ConsumeVarint(b)
			res.Status = record.Status(x)
			return n
		case num == resPayload && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				res.Payload = append([]byte{}, raw...)
			}
			return n
		}
		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err == nil {
		err = keyErr
	}
	if err == nil && !hasKey {
		err = errors.Wrap(ErrMalformed, "result without key")
	}
	return res, err
}

func consumeFields(b []byte, fn func(protowire.Number, protowire.Type, []byte) int) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Mark(protowire.ParseError(n), ErrMalformed)
		}
		b = b[n:]
		m := fn(num, typ, b)
		if m < 0 {
			return errors.Mark(protowire.ParseError(m), ErrMalformed)
		}
		b = b[m:]
	}
	return nil
}
