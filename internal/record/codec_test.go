package record_test

import (
	"math"

	"github.com/arya-analytics/grove/internal/record"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/protobuf/encoding/protowire"
)

var _ = Describe("WireCodec", func() {
	var codec record.WireCodec
	It("Should preserve integers beyond float precision", func() {
		payload, err := codec.Encode(record.Bins{"big": int64(math.MaxInt64), "neg": -3}, record.Metadata{})
		Expect(err).ToNot(HaveOccurred())
		bins, _, err := codec.Decode(payload)
		Expect(err).ToNot(HaveOccurred())
		Expect(bins["big"]).To(Equal(int64(math.MaxInt64)))
		Expect(bins["neg"]).To(Equal(int64(-3)))
	})
	It("Should decode nested lists and maps into canonical types", func() {
		in := record.Bins{
			"profile": map[string]interface{}{
				"tags":   []interface{}{"a", int32(2), nil, true},
				"avatar": []byte{0xde, 0xad},
			},
			"score": float32(1.5),
		}
		payload, err := codec.Encode(in, record.Metadata{Generation: 3, TTL: 60})
		Expect(err).ToNot(HaveOccurred())
		bins, md, err := codec.Decode(payload)
		Expect(err).ToNot(HaveOccurred())
		Expect(md).To(Equal(record.Metadata{Generation: 3, TTL: 60}))
		Expect(bins).To(Equal(record.Bins{
			"profile": map[string]interface{}{
				"tags":   []interface{}{"a", int64(2), nil, true},
				"avatar": []byte{0xde, 0xad},
			},
			"score": float64(1.5),
		}))
	})
	It("Should encode equal bins to equal payloads", func() {
		a, _ := codec.Encode(record.Bins{"x": 1, "y": "2", "z": []interface{}{}}, record.Metadata{})
		b, _ := codec.Encode(record.Bins{"z": []interface{}{}, "y": "2", "x": 1}, record.Metadata{})
		Expect(a).To(Equal(b))
	})
	It("Should decode an empty payload to an empty record", func() {
		bins, md, err := codec.Decode(nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(bins).To(BeEmpty())
		Expect(md).To(Equal(record.Metadata{}))
	})
	It("Should reject unsupported bin values", func() {
		_, err := codec.Encode(record.Bins{"c": make(chan int)}, record.Metadata{})
		Expect(errors.Is(err, record.ErrUnsupportedBin)).To(BeTrue())
	})
	It("Should reject truncated payloads", func() {
		payload, err := codec.Encode(record.Bins{"x": "hello"}, record.Metadata{})
		Expect(err).ToNot(HaveOccurred())
		_, _, err = codec.Decode(payload[:len(payload)-2])
		Expect(errors.Is(err, record.ErrMalformed)).To(BeTrue())
	})
	DescribeTable("Should reject value fields with the wrong wire type",
		func(num protowire.Number) {
			value := protowire.AppendTag(nil, num, protowire.BytesType)
			value = protowire.AppendString(value, "abc")
			bin := protowire.AppendTag(nil, 1, protowire.BytesType)
			bin = protowire.AppendString(bin, "x")
			bin = protowire.AppendTag(bin, 2, protowire.BytesType)
			bin = protowire.AppendBytes(bin, value)
			payload := protowire.AppendTag(nil, 3, protowire.BytesType)
			payload = protowire.AppendBytes(payload, bin)
			_, _, err := codec.Decode(payload)
			Expect(errors.Is(err, record.ErrMalformed)).To(BeTrue())
		},
		Entry("nil", protowire.Number(1)),
		Entry("bool", protowire.Number(2)),
		Entry("int", protowire.Number(3)),
		Entry("float", protowire.Number(4)),
	)
})

var _ = Describe("Outcome", func() {
	It("Should default found bins to an empty map", func() {
		o := record.Found(nil, record.Metadata{Generation: 1})
		Expect(o.Found()).To(BeTrue())
		Expect(o.Bins()).ToNot(BeNil())
		Expect(o.Metadata().Generation).To(Equal(uint32(1)))
	})
	It("Should carry the error of an errored outcome", func() {
		o := record.Errored(record.ErrRecordNotFound)
		Expect(o.Kind()).To(Equal(record.OutcomeErrored))
		Expect(o.Err()).To(MatchError(record.ErrRecordNotFound))
	})
	It("Should project bins by name", func() {
		b := record.Bins{"x": 1, "y": 2}
		Expect(b.Project([]string{"y", "missing"})).To(Equal(record.Bins{"y": 2}))
		Expect(b.Project(nil)).To(Equal(b))
	})
})
