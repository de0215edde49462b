package key

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cockroachdb/errors"
	"github.com/zeebo/blake3"
)

// DigestSize is the length in bytes of a key digest.
const DigestSize = 20

// Digest is a deterministic hash of a key's namespace, set and value. Nodes route
// and store records by digest, so two keys with equal digests address the same
// record.
type Digest [DigestSize]byte

// ComputeDigest hashes the namespace, set and value of a key.
func ComputeDigest(namespace, set string, v Value) Digest {
	h := blake3.New()
	_, _ = h.Write([]byte(namespace))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(set))
	_, _ = h.Write([]byte{0, byte(v.kind)})
	switch v.kind {
	case KindInt:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.i))
		_, _ = h.Write(b[:])
	case KindString, KindBytes:
		_, _ = h.Write([]byte(v.s))
	case KindNone:
	}
	var d Digest
	_, _ = h.Digest().Read(d[:])
	return d
}

// DigestFromBytes copies b into a Digest. b must be exactly DigestSize bytes.
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestSize {
		return d, errors.Newf("digest must be %d bytes, got %d", DigestSize, len(b))
	}
	copy(d[:], b)
	return d, nil
}

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

func hexString(b []byte) string { return hex.EncodeToString(b) }
